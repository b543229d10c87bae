package audio

import (
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/tomz197/patchtyper/internal/config"
)

func drain(s beep.Streamer) (int, float64) {
	buf := make([][2]float64, 512)
	total := 0
	peak := 0.0
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			peak = max(peak, buf[i][0], -buf[i][0])
		}
		total += n
		if !ok {
			return total, peak
		}
	}
}

func TestToneLength(t *testing.T) {
	rate := beep.SampleRate(44100)
	n, peak := drain(Tone(440, 100*time.Millisecond, WaveSine, rate))
	if n != rate.N(100*time.Millisecond) {
		t.Errorf("expected %d samples, got %d", rate.N(100*time.Millisecond), n)
	}
	if peak > 1 || peak == 0 {
		t.Errorf("unexpected peak %f", peak)
	}
}

func TestEveryEffectIsFiniteAndBounded(t *testing.T) {
	rate := beep.SampleRate(44100)
	for e := EffectButtonClick; e <= EffectAlert; e++ {
		t.Run(e.String(), func(t *testing.T) {
			s := Sound(e, rate, 1)
			if s == nil {
				t.Fatal("no streamer")
			}
			n, peak := drain(s)
			if n == 0 {
				t.Fatal("effect produced no samples")
			}
			if n > rate.N(2*time.Second) {
				t.Errorf("effect too long: %d samples", n)
			}
			if peak > 1 {
				t.Errorf("effect clips: peak %f", peak)
			}
		})
	}
}

func TestSequenceIncludesGaps(t *testing.T) {
	rate := beep.SampleRate(44100)
	n, _ := drain(notes(rate, 100*time.Millisecond, 50*time.Millisecond, WaveSquare, 440, 880))
	want := rate.N(100*time.Millisecond)*2 + rate.N(50*time.Millisecond)
	if n != want {
		t.Errorf("expected %d samples, got %d", want, n)
	}
}

func TestZeroVolumeIsSilent(t *testing.T) {
	rate := beep.SampleRate(44100)
	_, peak := drain(Sound(EffectAlert, rate, 0))
	if peak != 0 {
		t.Errorf("expected silence, got peak %f", peak)
	}
}

func TestUnknownEffect(t *testing.T) {
	if Sound(Effect(99), sampleRate, 1) != nil {
		t.Error("expected nil streamer for an unknown effect")
	}
	if Effect(99).String() != "unknown" {
		t.Error("expected unknown name")
	}
}

func TestMuteWithoutSpeaker(t *testing.T) {
	m := NewManager(config.AudioConfig{Enabled: true, Volume: 0.5})
	m.Play(EffectAlert) // not initialized, must not panic
	if m.Muted() {
		t.Fatal("enabled audio should start unmuted")
	}
	if !m.ToggleMute() || !m.Muted() {
		t.Fatal("expected muted after toggle")
	}

	var s Silent
	if !s.ToggleMute() || s.ToggleMute() {
		t.Error("silent player should toggle")
	}
}
