package engine

import (
	"fmt"
	"math"
	"time"
)

// Outcome is the branch a submission took.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Result describes what a submitted fix did.
type Result struct {
	Outcome Outcome
	Threat  *ThreatView // patched threat, nil on failure

	Points    int // total points earned, including TimeBonus
	TimeBonus int
	Penalty   int // health lost on failure

	LeveledUp    bool
	WaveComplete bool
	GameOver     bool
}

// TimeBonus returns min(maxBonus, max(0, floor(threshold - elapsed))) for a
// fix typed elapsed after the threat appeared.
func TimeBonus(elapsed time.Duration, thresholdSeconds float64, maxBonus int) int {
	bonus := math.Floor(thresholdSeconds - elapsed.Seconds())
	if bonus <= 0 {
		return 0
	}
	return min(maxBonus, int(bonus))
}

// SubmitFix resolves a typed fix against the live threats. A match patches
// the threat and scores it; anything else costs the wrong fix penalty.
func (g *Game) SubmitFix(input string, now time.Time) (Result, error) {
	if g.state.Phase != PhasePlaying {
		return Result{}, fmt.Errorf("submit fix while %s: %w", g.state.Phase, ErrInvalidState)
	}

	t := g.threats.FindByFix(input)
	if t == nil {
		return g.rejectFix(now)
	}

	bonus := TimeBonus(now.Sub(t.SpawnedAt), g.cfg.Scoring.TimeBonusThreshold, g.cfg.Scoring.MaxTimeBonus)
	points := t.Template.BasePoints + bonus

	next := g.state
	next.Score += points
	next.DefeatedThisWave++
	// At most one level per submission
	leveled := next.Score > next.Level*g.cfg.Scoring.LevelUpThreshold
	if leveled {
		next.Level++
	}
	if err := g.commit(next); err != nil {
		return Result{}, err
	}
	g.threats.Remove(t.ID)

	v := t.view()
	res := Result{
		Outcome:   OutcomeSuccess,
		Threat:    &v,
		Points:    points,
		TimeBonus: bonus,
		LeveledUp: leveled,
	}
	g.emit(Event{Type: EventThreatPatched, At: now, Threat: &v, Amount: points})
	if leveled {
		g.emit(Event{Type: EventLevelUp, At: now})
	}

	if next.DefeatedThisWave >= g.threatsNeeded(next.Wave) {
		if err := g.completeWave(now); err != nil {
			return res, err
		}
		res.WaveComplete = true
	}
	return res, nil
}

func (g *Game) rejectFix(now time.Time) (Result, error) {
	penalty := g.cfg.Player.WrongFixPenalty
	g.emit(Event{Type: EventFixRejected, At: now, Amount: penalty})
	if err := g.applyDamage(penalty, now); err != nil {
		return Result{}, err
	}
	return Result{
		Outcome:  OutcomeFailure,
		Penalty:  penalty,
		GameOver: g.state.Phase == PhaseGameOver,
	}, nil
}
