// Package engine implements the wave and threat encounter rules.
//
// Game holds the rules and is not safe for concurrent use. Engine wraps a
// Game in a single goroutine driven by commands and two tickers, and
// publishes immutable snapshots for readers.
package engine

import (
	"math/rand"
	"time"

	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
)

// Game owns the state of one player's session.
type Game struct {
	cfg     config.Config
	policy  Policy
	catalog *catalog.Catalog
	rng     Rand

	state   State
	threats Threats
	events  []Event
}

// NewGame returns an idle game. A nil rng uses the global random source.
func NewGame(cfg config.Config, cat *catalog.Catalog, rng Rand) *Game {
	if rng == nil {
		rng = globalRand{}
	}
	return &Game{
		cfg:     cfg,
		policy:  NewPolicy(cfg),
		catalog: cat,
		rng:     rng,
		state: State{
			Phase:         PhaseIdle,
			Health:        cfg.Player.InitialHealth,
			MaxHealth:     cfg.Player.InitialHealth,
			Level:         1,
			Wave:          1,
			SpawnInterval: SpawnInterval(1, cfg.Difficulty.InitialSpawnRate, cfg.Difficulty.SpawnRateDecrease, cfg.Difficulty.MinSpawnRate),
		},
	}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// State returns a copy of the current state.
func (g *Game) State() State {
	return g.state
}

// Policy returns the difficulty policy in use.
func (g *Game) Policy() Policy {
	return g.policy
}

// LiveThreats returns the number of live threats.
func (g *Game) LiveThreats() int {
	return g.threats.Len()
}

// Spawn is the spawn trigger. It tries to add one threat and is a no-op
// outside of play or when the cap is reached.
func (g *Game) Spawn(now time.Time) *ThreatView {
	if g.state.Phase != PhasePlaying {
		return nil
	}
	t := g.threats.TrySpawn(g.catalog, g.policy, g.rng, SpawnRequest{
		Level:    g.state.Level,
		Wave:     g.state.Wave,
		MaxWaves: g.cfg.Waves.MaxWaves,
		Cap:      g.cfg.Player.MaxThreats,
		Now:      now,
	})
	if t == nil {
		return nil
	}
	v := t.view()
	g.emit(Event{Type: EventThreatSpawned, At: now, Threat: &v, Amount: t.Damage})
	return &v
}

// CheckExpiry is the expiry trigger. Every threat whose budget elapsed at
// now is removed and its damage applied, in spawn order. The scan stops when
// the game ends. It returns the number of expired threats.
func (g *Game) CheckExpiry(now time.Time) (int, error) {
	if g.state.Phase != PhasePlaying {
		return 0, nil
	}

	var expired []*Threat
	for _, t := range g.threats.Live() {
		if t.Expired(now) {
			expired = append(expired, t)
		}
	}

	n := 0
	for _, t := range expired {
		if !g.threats.Remove(t.ID) {
			continue
		}
		n++
		v := t.view()
		g.emit(Event{Type: EventThreatExpired, At: now, Threat: &v, Amount: t.Damage})
		if err := g.applyDamage(t.Damage, now); err != nil {
			return n, err
		}
		if g.state.Phase == PhaseGameOver {
			break
		}
	}
	return n, nil
}

// Snapshot builds an immutable view of the game at now.
func (g *Game) Snapshot(now time.Time) *Snapshot {
	live := g.threats.Live()
	views := make([]ThreatView, len(live))
	for i, t := range live {
		views[i] = t.view()
	}
	return &Snapshot{
		State:         g.state,
		ThreatsNeeded: g.threatsNeeded(g.state.Wave),
		Threats:       views,
		TakenAt:       now,
	}
}

// DrainEvents returns and forgets the events produced since the last call.
func (g *Game) DrainEvents() []Event {
	if len(g.events) == 0 {
		return nil
	}
	out := g.events
	g.events = nil
	return out
}

func (g *Game) threatsNeeded(wave int) int {
	return g.cfg.Waves.ThreatsPerWave * wave
}

func (g *Game) emit(ev Event) {
	ev.Health = g.state.Health
	ev.Score = g.state.Score
	ev.Level = g.state.Level
	ev.Wave = g.state.Wave
	g.events = append(g.events, ev)
}
