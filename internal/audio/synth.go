package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Wave is an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

// tone is a fixed-length oscillator with a linear attack and release.
type tone struct {
	freq    float64
	wave    Wave
	rate    beep.SampleRate
	phase   float64
	pos     int
	total   int
	attack  int
	release int
}

// Tone returns a streamer of d length. A short fade in and out avoids clicks.
func Tone(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	total := rate.N(d)
	fade := min(rate.N(5*time.Millisecond), total/4)
	return &tone{
		freq:    freq,
		wave:    wave,
		rate:    rate,
		total:   total,
		attack:  fade,
		release: total / 3,
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if t.pos >= t.total {
			return i, i > 0
		}

		var val float64
		switch t.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * t.phase)
		case WaveSquare:
			if t.phase < 0.5 {
				val = 1
			} else {
				val = -1
			}
		case WaveSaw:
			val = 2 * (t.phase - 0.5)
		case WaveNoise:
			val = rand.Float64()*2 - 1
		}
		val *= t.envelope()

		samples[i][0] = val
		samples[i][1] = val

		t.phase += t.freq / float64(t.rate)
		t.phase -= math.Floor(t.phase)
		t.pos++
	}
	return len(samples), true
}

func (t *tone) envelope() float64 {
	if t.attack > 0 && t.pos < t.attack {
		return float64(t.pos) / float64(t.attack)
	}
	if left := t.total - t.pos; t.release > 0 && left < t.release {
		return float64(left) / float64(t.release)
	}
	return 1
}

func (t *tone) Err() error { return nil }

// withVolume scales s linearly by vol in [0, 1].
// effects.Volume works in log2 steps, so zero maps to Silent.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// notes plays a sequence of tones with a short gap between them.
func notes(rate beep.SampleRate, d, gap time.Duration, wave Wave, freqs ...float64) beep.Streamer {
	parts := make([]beep.Streamer, 0, len(freqs)*2)
	for i, f := range freqs {
		if i > 0 && gap > 0 {
			parts = append(parts, beep.Silence(rate.N(gap)))
		}
		parts = append(parts, Tone(f, d, wave, rate))
	}
	return beep.Seq(parts...)
}

// Sound builds the streamer for an effect at master volume vol.
func Sound(e Effect, rate beep.SampleRate, vol float64) beep.Streamer {
	ms := time.Millisecond
	var s beep.Streamer

	switch e {
	case EffectButtonClick:
		s = Tone(1200, 30*ms, WaveSquare, rate)
	case EffectGameStart:
		s = notes(rate, 90*ms, 0, WaveSine, 440, 554.37, 659.25, 880)
	case EffectPatchSuccess:
		s = notes(rate, 80*ms, 0, WaveSquare, 987.77, 1318.51)
	case EffectPatchFail:
		s = Tone(110, 200*ms, WaveSaw, rate)
	case EffectThreatAppear:
		s = notes(rate, 70*ms, 0, WaveSine, 660, 440)
	case EffectThreatExpire:
		s = beep.Mix(
			Tone(0, 250*ms, WaveNoise, rate),
			withVolume(Tone(80, 250*ms, WaveSine, rate), 0.6),
		)
	case EffectWaveComplete:
		s = notes(rate, 110*ms, 20*ms, WaveSine, 523.25, 659.25, 783.99, 1046.5)
	case EffectGameOver:
		s = notes(rate, 180*ms, 30*ms, WaveSaw, 392, 329.63, 261.63, 196)
	case EffectTypingKey:
		s = withVolume(Tone(0, 15*ms, WaveNoise, rate), 0.3)
	case EffectAlert:
		s = notes(rate, 60*ms, 60*ms, WaveSquare, 987.77, 987.77)
	default:
		return nil
	}

	return withVolume(s, vol*effectGain[e])
}

// effectGain balances the effects against each other.
var effectGain = map[Effect]float64{
	EffectButtonClick:  0.3,
	EffectGameStart:    0.5,
	EffectPatchSuccess: 0.35,
	EffectPatchFail:    0.4,
	EffectThreatAppear: 0.35,
	EffectThreatExpire: 0.5,
	EffectWaveComplete: 0.5,
	EffectGameOver:     0.5,
	EffectTypingKey:    0.25,
	EffectAlert:        0.35,
}
