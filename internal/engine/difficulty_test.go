package engine

import (
	"testing"
	"time"

	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
)

func TestTimeBudget(t *testing.T) {
	p := NewPolicy(config.Default()) // 20s per card, x1.5, -5% per wave, floor 60%

	tests := []struct {
		severity catalog.Severity
		wave     int
		want     time.Duration
	}{
		{catalog.SeverityMedium, 1, 30 * time.Second},
		{catalog.SeverityLow, 1, 33 * time.Second},
		{catalog.SeverityHigh, 1, 27 * time.Second},
		{catalog.SeverityCritical, 1, 24 * time.Second},
		{catalog.SeverityMedium, 3, 27 * time.Second},
		{catalog.SeverityMedium, 9, 18 * time.Second},
		{catalog.SeverityMedium, 30, 18 * time.Second}, // floored
	}
	for _, tt := range tests {
		got := p.TimeBudget(tt.severity, tt.wave)
		if diff := got - tt.want; diff > time.Millisecond || diff < -time.Millisecond {
			t.Errorf("TimeBudget(%s, %d) = %s, want %s", tt.severity, tt.wave, got, tt.want)
		}
	}
}

func TestScaledDamage(t *testing.T) {
	tests := []struct {
		base, wave, want int
	}{
		{10, 1, 10},
		{10, 2, 11},
		{15, 2, 17}, // 16.5 rounds up
		{30, 11, 60},
		{1, 5, 2},
	}
	for _, tt := range tests {
		if got := ScaledDamage(tt.base, tt.wave); got != tt.want {
			t.Errorf("ScaledDamage(%d, %d) = %d, want %d", tt.base, tt.wave, got, tt.want)
		}
	}
}

func TestSpawnIntervalNonIncreasingAndFloored(t *testing.T) {
	p := NewPolicy(config.Default()) // 4s, -300ms per wave, floor 1s

	if got := p.SpawnInterval(1); got != 4*time.Second {
		t.Fatalf("wave 1: expected 4s, got %s", got)
	}
	if got := p.SpawnInterval(3); got != 3400*time.Millisecond {
		t.Fatalf("wave 3: expected 3.4s, got %s", got)
	}

	prev := p.SpawnInterval(1)
	for wave := 2; wave <= 40; wave++ {
		got := p.SpawnInterval(wave)
		if got > prev {
			t.Fatalf("wave %d: interval grew from %s to %s", wave, prev, got)
		}
		if got < time.Second {
			t.Fatalf("wave %d: interval %s below floor", wave, got)
		}
		prev = got
	}
	if prev != time.Second {
		t.Errorf("expected late waves to sit at the floor, got %s", prev)
	}
}

func TestTimeBonus(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{3 * time.Second, 7},
		{3500 * time.Millisecond, 6},
		{0, 10},
		{10 * time.Second, 0},
		{25 * time.Second, 0},
	}
	for _, tt := range tests {
		if got := TimeBonus(tt.elapsed, 10, 10); got != tt.want {
			t.Errorf("TimeBonus(%s) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
	if got := TimeBonus(0, 30, 10); got != 10 {
		t.Errorf("expected bonus capped at 10, got %d", got)
	}
}
