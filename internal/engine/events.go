package engine

import "time"

// EventType identifies a game notification.
type EventType int

const (
	EventGameStarted EventType = iota
	EventThreatSpawned
	EventThreatPatched
	EventFixRejected
	EventThreatExpired
	EventDamageApplied
	EventLevelUp
	EventWaveComplete
	EventWaveStarted
	EventGameOver
)

func (t EventType) String() string {
	switch t {
	case EventGameStarted:
		return "game_started"
	case EventThreatSpawned:
		return "threat_spawned"
	case EventThreatPatched:
		return "threat_patched"
	case EventFixRejected:
		return "fix_rejected"
	case EventThreatExpired:
		return "threat_expired"
	case EventDamageApplied:
		return "damage_applied"
	case EventLevelUp:
		return "level_up"
	case EventWaveComplete:
		return "wave_complete"
	case EventWaveStarted:
		return "wave_started"
	case EventGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Event is a notification produced by a state transition.
type Event struct {
	Type EventType
	At   time.Time

	// Spawned, patched or expired threat
	Threat *ThreatView

	// Points earned, damage taken, penalty or wave bonus depending on Type
	Amount int

	// State right after the event
	Health int
	Score  int
	Level  int
	Wave   int
}
