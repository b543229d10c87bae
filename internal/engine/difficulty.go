package engine

import (
	"time"

	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
)

// SeverityFactor scales the time budget: the more dangerous a threat, the
// less time the player gets.
func SeverityFactor(s catalog.Severity) float64 {
	switch s {
	case catalog.SeverityCritical:
		return 0.8
	case catalog.SeverityHigh:
		return 0.9
	case catalog.SeverityLow:
		return 1.1
	default:
		return 1.0
	}
}

// WaveFactor shrinks time budgets linearly per wave, floored at minPercentage.
func WaveFactor(wave int, reductionPerWave, minPercentage float64) float64 {
	return max(minPercentage, 1-float64(wave-1)*reductionPerWave)
}

// ScaledDamage returns ceil(base * (1 + (wave-1)*0.1)).
// Computed in tenths to stay exact.
func ScaledDamage(base, wave int) int {
	tenths := base * (9 + wave)
	return (tenths + 9) / 10
}

// SpawnInterval returns initial - decrease*(wave-1), floored.
func SpawnInterval(wave int, initial, decrease, floor time.Duration) time.Duration {
	return max(floor, initial-decrease*time.Duration(wave-1))
}

// Policy binds the difficulty formulas to a configuration.
type Policy struct {
	time       config.TimeConfig
	difficulty config.DifficultyConfig
}

// NewPolicy returns the difficulty policy for cfg.
func NewPolicy(cfg config.Config) Policy {
	return Policy{time: cfg.Time, difficulty: cfg.Difficulty}
}

// TimeBudget is how long a threat of the given severity stays live in a wave.
func (p Policy) TimeBudget(s catalog.Severity, wave int) time.Duration {
	seconds := p.time.TimePerCard *
		SeverityFactor(s) *
		WaveFactor(wave, p.time.TimeReductionPerWave, p.time.MinTimePercentage) *
		p.time.TimeMultiplier
	return time.Duration(seconds * float64(time.Second))
}

// Damage is the health lost when a threat expires in a wave.
func (p Policy) Damage(base, wave int) int {
	return ScaledDamage(base, wave)
}

// SpawnInterval is the spawn cadence of a wave.
func (p Policy) SpawnInterval(wave int) time.Duration {
	return SpawnInterval(wave, p.difficulty.InitialSpawnRate, p.difficulty.SpawnRateDecrease, p.difficulty.MinSpawnRate)
}

// CheckInterval is the fixed cadence of expiry scans.
func (p Policy) CheckInterval() time.Duration {
	return p.difficulty.ThreatCheckInterval
}
