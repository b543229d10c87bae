package engine

import (
	"time"

	"github.com/tomz197/patchtyper/internal/catalog"
)

// Phase is the position of a game in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseWaveComplete
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseWaveComplete:
		return "wave_complete"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// State is the authoritative game state. It is only replaced through commit.
type State struct {
	Phase            Phase
	Health           int
	MaxHealth        int
	Score            int
	Level            int
	Wave             int
	DefeatedThisWave int
	SpawnInterval    time.Duration

	// Set by the last wave completion
	HealthRestored int
	WaveBonus      int
}

// ThreatView is a read-only copy of a live threat.
type ThreatView struct {
	ID          uint64
	TemplateID  string
	Name        string
	Description string
	Fix         string
	Severity    catalog.Severity
	Damage      int
	SpawnedAt   time.Time
	TimeBudget  time.Duration
}

// Remaining returns the time left before the threat expires, never negative.
func (v ThreatView) Remaining(now time.Time) time.Duration {
	return max(0, v.TimeBudget-now.Sub(v.SpawnedAt))
}

// Progress returns the remaining fraction of the time budget in [0, 1].
func (v ThreatView) Progress(now time.Time) float64 {
	if v.TimeBudget <= 0 {
		return 0
	}
	return min(1, float64(v.Remaining(now))/float64(v.TimeBudget))
}

// Snapshot is an immutable view of the game published after every mutation.
type Snapshot struct {
	State
	ThreatsNeeded int // defeats required to complete the current wave
	Threats       []ThreatView
	TakenAt       time.Time
}

func (t *Threat) view() ThreatView {
	return ThreatView{
		ID:          t.ID,
		TemplateID:  t.Template.ID,
		Name:        t.Template.Name,
		Description: t.Template.Description,
		Fix:         t.Template.Fix,
		Severity:    t.Template.Severity,
		Damage:      t.Damage,
		SpawnedAt:   t.SpawnedAt,
		TimeBudget:  t.TimeBudget,
	}
}
