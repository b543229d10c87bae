// Package audio synthesizes the game's sound effects with beep.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/tomz197/patchtyper/internal/config"
)

const sampleRate = beep.SampleRate(44100)

// Effect names a sound effect.
type Effect int

const (
	EffectButtonClick Effect = iota
	EffectGameStart
	EffectPatchSuccess
	EffectPatchFail
	EffectThreatAppear
	EffectThreatExpire
	EffectWaveComplete
	EffectGameOver
	EffectTypingKey
	EffectAlert
)

var effectNames = [...]string{
	"buttonClick",
	"gameStart",
	"patchSuccess",
	"patchFail",
	"threatAppear",
	"threatExpire",
	"waveComplete",
	"gameOver",
	"typingKey",
	"alert",
}

func (e Effect) String() string {
	if e < 0 || int(e) >= len(effectNames) {
		return "unknown"
	}
	return effectNames[e]
}

// Player plays sound effects. Implementations must be safe for concurrent use.
type Player interface {
	Play(e Effect)
	ToggleMute() bool
	Muted() bool
}

// Silent is a Player that only tracks the mute flag. Used over SSH and when
// no audio device is available.
type Silent struct {
	mu    sync.Mutex
	muted bool
}

func (s *Silent) Play(Effect) {}

func (s *Silent) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted
}

func (s *Silent) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Manager plays effects on the local speaker through a single mixer.
type Manager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	muted       bool
	initialized bool
}

// NewManager creates a manager using the volume and mute setting of cfg.
func NewManager(cfg config.AudioConfig) *Manager {
	return &Manager{
		mixer:  &beep.Mixer{},
		volume: cfg.Volume,
		muted:  !cfg.Enabled,
	}
}

// Initialize opens the speaker. Until it succeeds Play does nothing.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(m.mixer)
	m.initialized = true
	return nil
}

// Play queues an effect. Muted or uninitialized managers drop it.
func (m *Manager) Play(e Effect) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized || m.muted {
		return
	}
	s := Sound(e, sampleRate, m.volume)
	if s == nil {
		return
	}
	speaker.Lock()
	m.mixer.Add(s)
	speaker.Unlock()
}

// ToggleMute flips the mute flag and returns the new value. Muting also
// cuts the sounds still playing.
func (m *Manager) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.muted = !m.muted
	if m.muted && m.initialized {
		speaker.Lock()
		m.mixer.Clear()
		speaker.Unlock()
	}
	return m.muted
}

func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// Cleanup stops every playing sound.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}
	speaker.Lock()
	m.mixer.Clear()
	speaker.Unlock()
	m.initialized = false
}

var (
	_ Player = (*Manager)(nil)
	_ Player = (*Silent)(nil)
)
