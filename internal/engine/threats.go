package engine

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tomz197/patchtyper/internal/catalog"
)

// lastThreatID is shared by every manager so ids stay unique for the
// lifetime of the process, across waves, restarts and sessions.
var lastThreatID atomic.Uint64

// Rand is the random source used for template selection.
type Rand interface {
	Float64() float64
}

// Threat is a live instance of a catalog template.
type Threat struct {
	ID         uint64
	Template   *catalog.Template
	SpawnedAt  time.Time
	TimeBudget time.Duration
	Damage     int
}

// Expired reports whether the time budget has been exceeded at now.
func (t *Threat) Expired(now time.Time) bool {
	return now.Sub(t.SpawnedAt) > t.TimeBudget
}

// Threats tracks live threat instances in spawn order.
type Threats struct {
	live []*Threat
}

// Len returns the number of live threats.
func (m *Threats) Len() int {
	return len(m.live)
}

// Live returns the live threats in spawn order. The slice must not be modified.
func (m *Threats) Live() []*Threat {
	return m.live
}

// Has reports whether a threat spawned from templateID is live.
func (m *Threats) Has(templateID string) bool {
	for _, t := range m.live {
		if t.Template.ID == templateID {
			return true
		}
	}
	return false
}

// SpawnRequest carries everything TrySpawn needs besides the catalog.
type SpawnRequest struct {
	Level    int
	Wave     int
	MaxWaves int
	Cap      int
	Now      time.Time
}

// TrySpawn creates a threat from an eligible template, or returns nil when
// the cap is reached or no template is eligible.
func (m *Threats) TrySpawn(cat *catalog.Catalog, policy Policy, rng Rand, req SpawnRequest) *Threat {
	if len(m.live) >= req.Cap {
		return nil
	}
	eligible := cat.Eligible(req.Level, m.Has)
	tmpl := SelectTemplate(eligible, req.Wave, req.MaxWaves, rng.Float64())
	if tmpl == nil {
		return nil
	}

	t := &Threat{
		ID:         lastThreatID.Add(1),
		Template:   tmpl,
		SpawnedAt:  req.Now,
		TimeBudget: policy.TimeBudget(tmpl.Severity, req.Wave),
		Damage:     policy.Damage(tmpl.BaseDamage, req.Wave),
	}
	m.live = append(m.live, t)
	return t
}

// Remove deletes a threat by id. Removing an unknown id is a no-op.
func (m *Threats) Remove(id uint64) bool {
	i := slices.IndexFunc(m.live, func(t *Threat) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	m.live = slices.Delete(m.live, i, i+1)
	return true
}

// FindByFix returns the first live threat, in spawn order, whose fix equals
// input ignoring case.
func (m *Threats) FindByFix(input string) *Threat {
	for _, t := range m.live {
		if strings.EqualFold(t.Template.Fix, input) {
			return t
		}
	}
	return nil
}

// Clear drops every live threat.
func (m *Threats) Clear() {
	clear(m.live)
	m.live = m.live[:0]
}

// SelectTemplate picks a template for a spawn given a draw r in [0, 1).
// Up to wave 3 the pick is uniform. Later waves sort candidates by severity,
// most severe first, and shrink the index range as the wave approaches
// maxWaves so severe threats become more likely.
func SelectTemplate(eligible []*catalog.Template, wave, maxWaves int, r float64) *catalog.Template {
	n := len(eligible)
	if n == 0 {
		return nil
	}
	if wave <= 3 {
		return eligible[clampIndex(int(r*float64(n)), n)]
	}

	sorted := slices.Clone(eligible)
	slices.SortStableFunc(sorted, func(a, b *catalog.Template) int {
		return cmp.Compare(b.Severity, a.Severity)
	})
	bias := max(0, 1-float64(wave)/float64(2*maxWaves))
	return sorted[clampIndex(int(math.Floor(r*float64(n)*bias)), n)]
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}
