package web

import (
	"time"

	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/engine"
)

// Inbound command types.
const (
	cmdStart    = "start"
	cmdSubmit   = "submit"
	cmdContinue = "continue"
)

// Outbound frame types.
const (
	msgHello    = "hello"
	msgSnapshot = "snapshot"
	msgEvent    = "event"
	msgResult   = "result"
	msgError    = "error"
	msgShutdown = "shutdown"
)

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outboundMessage struct {
	Type     string       `json:"type"`
	Hello    *helloDTO    `json:"hello,omitempty"`
	Snapshot *snapshotDTO `json:"snapshot,omitempty"`
	Event    *eventDTO    `json:"event,omitempty"`
	Result   *resultDTO   `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type helloDTO struct {
	Session     string           `json:"session"`
	Username    string           `json:"username"`
	ShowFixHint bool             `json:"show_fix_hint"`
	HintStyle   config.HintStyle `json:"hint_style"`
}

type threatDTO struct {
	ID          uint64  `json:"id"`
	TemplateID  string  `json:"template_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fix         string  `json:"fix"`
	Severity    string  `json:"severity"`
	Damage      int     `json:"damage"`
	TimeLimit   float64 `json:"time_limit"` // seconds
	Remaining   float64 `json:"remaining"`  // seconds
	Progress    float64 `json:"progress"`   // remaining fraction
}

type snapshotDTO struct {
	Phase          string      `json:"phase"`
	Health         int         `json:"health"`
	MaxHealth      int         `json:"max_health"`
	Score          int         `json:"score"`
	Level          int         `json:"level"`
	Wave           int         `json:"wave"`
	Defeated       int         `json:"defeated"`
	Needed         int         `json:"needed"`
	SpawnInterval  float64     `json:"spawn_interval"` // seconds
	HealthRestored int         `json:"health_restored"`
	WaveBonus      int         `json:"wave_bonus"`
	Threats        []threatDTO `json:"threats"`
}

type eventDTO struct {
	Type   string     `json:"type"`
	Threat *threatDTO `json:"threat,omitempty"`
	Amount int        `json:"amount"`
	Health int        `json:"health"`
	Score  int        `json:"score"`
	Level  int        `json:"level"`
	Wave   int        `json:"wave"`
}

type resultDTO struct {
	Outcome      string     `json:"outcome"`
	Threat       *threatDTO `json:"threat,omitempty"`
	Points       int        `json:"points"`
	TimeBonus    int        `json:"time_bonus"`
	Penalty      int        `json:"penalty"`
	LeveledUp    bool       `json:"leveled_up"`
	WaveComplete bool       `json:"wave_complete"`
	GameOver     bool       `json:"game_over"`
}

func newThreatDTO(v *engine.ThreatView, now time.Time) *threatDTO {
	if v == nil {
		return nil
	}
	return &threatDTO{
		ID:          v.ID,
		TemplateID:  v.TemplateID,
		Name:        v.Name,
		Description: v.Description,
		Fix:         v.Fix,
		Severity:    v.Severity.String(),
		Damage:      v.Damage,
		TimeLimit:   v.TimeBudget.Seconds(),
		Remaining:   v.Remaining(now).Seconds(),
		Progress:    v.Progress(now),
	}
}

func newSnapshotDTO(s *engine.Snapshot, now time.Time) *snapshotDTO {
	dto := &snapshotDTO{
		Phase:          s.Phase.String(),
		Health:         s.Health,
		MaxHealth:      s.MaxHealth,
		Score:          s.Score,
		Level:          s.Level,
		Wave:           s.Wave,
		Defeated:       s.DefeatedThisWave,
		Needed:         s.ThreatsNeeded,
		SpawnInterval:  s.SpawnInterval.Seconds(),
		HealthRestored: s.HealthRestored,
		WaveBonus:      s.WaveBonus,
		Threats:        make([]threatDTO, 0, len(s.Threats)),
	}
	for i := range s.Threats {
		dto.Threats = append(dto.Threats, *newThreatDTO(&s.Threats[i], now))
	}
	return dto
}

func newEventDTO(ev engine.Event) *eventDTO {
	return &eventDTO{
		Type:   ev.Type.String(),
		Threat: newThreatDTO(ev.Threat, ev.At),
		Amount: ev.Amount,
		Health: ev.Health,
		Score:  ev.Score,
		Level:  ev.Level,
		Wave:   ev.Wave,
	}
}

func newResultDTO(r engine.Result, now time.Time) *resultDTO {
	return &resultDTO{
		Outcome:      r.Outcome.String(),
		Threat:       newThreatDTO(r.Threat, now),
		Points:       r.Points,
		TimeBonus:    r.TimeBonus,
		Penalty:      r.Penalty,
		LeveledUp:    r.LeveledUp,
		WaveComplete: r.WaveComplete,
		GameOver:     r.GameOver,
	}
}
