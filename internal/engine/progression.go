package engine

import (
	"fmt"
	"time"
)

// Start begins a new session from Idle or GameOver. Health, score, level,
// wave, the defeated counter, the spawn interval and live threats reset.
func (g *Game) Start(now time.Time) error {
	switch g.state.Phase {
	case PhaseIdle, PhaseGameOver:
	default:
		return fmt.Errorf("start while %s: %w", g.state.Phase, ErrInvalidState)
	}

	next := State{
		Phase:         PhasePlaying,
		Health:        g.cfg.Player.InitialHealth,
		MaxHealth:     g.cfg.Player.InitialHealth,
		Level:         1,
		Wave:          1,
		SpawnInterval: g.policy.SpawnInterval(1),
	}
	if err := g.commit(next); err != nil {
		return err
	}
	g.threats.Clear()
	g.emit(Event{Type: EventGameStarted, At: now})
	return nil
}

// ContinueWave moves from WaveComplete into the next wave.
func (g *Game) ContinueWave(now time.Time) error {
	if g.state.Phase != PhaseWaveComplete {
		return fmt.Errorf("continue wave while %s: %w", g.state.Phase, ErrInvalidState)
	}

	next := g.state
	next.Phase = PhasePlaying
	next.Wave++
	next.DefeatedThisWave = 0
	// Never slower than the previous wave
	next.SpawnInterval = min(g.state.SpawnInterval, g.policy.SpawnInterval(next.Wave))
	if err := g.commit(next); err != nil {
		return err
	}
	g.threats.Clear()
	g.emit(Event{Type: EventWaveStarted, At: now})
	return nil
}

// applyDamage lowers health against the current value, clamped to
// [0, MaxHealth]. Reaching zero ends the game in the same step.
func (g *Game) applyDamage(amount int, now time.Time) error {
	next := g.state
	next.Health = min(max(g.state.Health-amount, 0), g.state.MaxHealth)
	if next.Health == 0 {
		next.Phase = PhaseGameOver
	}
	if err := g.commit(next); err != nil {
		return err
	}

	g.emit(Event{Type: EventDamageApplied, At: now, Amount: amount})
	if next.Phase == PhaseGameOver {
		g.threats.Clear()
		g.emit(Event{Type: EventGameOver, At: now})
	}
	return nil
}

// completeWave awards the wave bonus, restores some health and clears the board.
func (g *Game) completeWave(now time.Time) error {
	next := g.state
	next.Phase = PhaseWaveComplete
	next.WaveBonus = g.cfg.Scoring.WaveCompletionBonus * g.state.Wave
	next.Score += next.WaveBonus
	next.HealthRestored = min(g.cfg.Player.HealthRestorePerWave, g.state.MaxHealth-g.state.Health)
	next.Health += next.HealthRestored
	if err := g.commit(next); err != nil {
		return err
	}
	g.threats.Clear()
	g.emit(Event{Type: EventWaveComplete, At: now, Amount: next.WaveBonus})
	return nil
}

// commit replaces the state after checking its bounds. An invalid state is
// rejected and the previous one kept.
func (g *Game) commit(next State) error {
	switch {
	case next.Health < 0 || next.Health > next.MaxHealth:
		return fmt.Errorf("health %d outside [0, %d]: %w", next.Health, next.MaxHealth, ErrCorruptState)
	case next.Health == 0 && next.Phase == PhasePlaying:
		return fmt.Errorf("zero health while playing: %w", ErrCorruptState)
	case next.Score < 0:
		return fmt.Errorf("negative score %d: %w", next.Score, ErrCorruptState)
	case next.Level < 1 || next.Wave < 1:
		return fmt.Errorf("level %d wave %d below 1: %w", next.Level, next.Wave, ErrCorruptState)
	case next.DefeatedThisWave < 0:
		return fmt.Errorf("negative defeat count %d: %w", next.DefeatedThisWave, ErrCorruptState)
	}
	g.state = next
	return nil
}
