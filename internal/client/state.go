package client

import (
	"time"

	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/draw"
	"github.com/tomz197/patchtyper/internal/engine"
	"github.com/tomz197/patchtyper/internal/input"
)

// Screen is the screen the client shows.
type Screen int

const (
	ScreenTitle Screen = iota
	ScreenPlaying
	ScreenWaveComplete
	ScreenGameOver
	ScreenShutdown
)

// screenFor maps an engine phase to its screen.
func screenFor(p engine.Phase) Screen {
	switch p {
	case engine.PhasePlaying:
		return ScreenPlaying
	case engine.PhaseWaveComplete:
		return ScreenWaveComplete
	case engine.PhaseGameOver:
		return ScreenGameOver
	default:
		return ScreenTitle
	}
}

// flash is a one-line message shown under the input line.
type flash struct {
	text  string
	style draw.Style
	until time.Time
}

// ClientState holds per-connection presentation state. Game state lives in
// the engine; this is only what the terminal needs on top of it.
type ClientState struct {
	Screen  Screen
	Running bool
	Line    *input.Line
	Flash   flash

	isInactive    bool
	shutdownTimer float64 // seconds left on the shutdown screen

	// Last drawn frame, used to decide when to clear the terminal
	lastScreen   Screen
	lastInactive bool
	lastFrame    draw.Frame
	needsClear   bool
}

// NewClientState creates the state for a fresh connection.
func NewClientState() *ClientState {
	return &ClientState{
		Screen:     ScreenTitle,
		Running:    true,
		Line:       input.NewLine(config.MaxInputLength),
		needsClear: true,
	}
}

func (s *ClientState) setFlash(text string, style draw.Style, now time.Time) {
	s.Flash = flash{text: text, style: style, until: now.Add(config.FlashDuration)}
}

// flashText returns the message to show at now, or "" once it expired.
func (s *ClientState) flashText(now time.Time) (string, draw.Style) {
	if s.Flash.text == "" || now.After(s.Flash.until) {
		return "", draw.Plain
	}
	return s.Flash.text, s.Flash.style
}
