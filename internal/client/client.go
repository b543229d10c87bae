// Package client runs one player's terminal session: it reads keys, turns
// them into engine commands, plays sounds for engine events and draws the
// current snapshot.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tomz197/patchtyper/internal/audio"
	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/draw"
	"github.com/tomz197/patchtyper/internal/engine"
	"github.com/tomz197/patchtyper/internal/hub"
	"github.com/tomz197/patchtyper/internal/input"
)

// GameEngine is the part of the engine a client drives.
type GameEngine interface {
	Start() error
	SubmitFix(text string) (engine.Result, error)
	ContinueWave() error
	Snapshot() *engine.Snapshot
	Events() <-chan engine.Event
	Now() time.Time
}

// Lobby is the session registry a client joins.
type Lobby interface {
	Register(username string) (*hub.Session, error)
	Unregister(id uuid.UUID)
	Players() []hub.PlayerInfo
}

var (
	_ GameEngine = (*engine.Engine)(nil)
	_ Lobby      = (*hub.Hub)(nil)
)

// Client handles rendering and input for a single connection.
type Client struct {
	lobby        Lobby
	session      *hub.Session
	engine       GameEngine
	audio        audio.Player
	ui           config.UIConfig
	logger       *log.Logger
	state        *ClientState
	frame        draw.Frame
	chunkWriter  *draw.ChunkWriter // Accumulates frame text for chunked output
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	keepAlive    bool
	termSizeFunc draw.TermSizeFunc
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
	Audio        audio.Player // nil plays nothing
	UI           config.UIConfig
	Logger       *log.Logger
	KeepAlive    bool // never disconnect an idle player (local play)
}

// NewClient registers a new session with the lobby and returns its client.
func NewClient(lobby Lobby, r *bufio.Reader, w io.Writer, opts ClientOptions) (*Client, error) {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	player := opts.Audio
	if player == nil {
		player = &audio.Silent{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sess, err := lobby.Register(opts.Username)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	c := &Client{
		lobby:        lobby,
		session:      sess,
		engine:       sess.Engine,
		audio:        player,
		ui:           opts.UI,
		logger:       logger,
		state:        NewClientState(),
		writer:       w,
		chunkWriter:  draw.NewChunkWriter(w, 0, 0),
		inputStream:  input.StartStream(r),
		lastInput:    time.Now(),
		keepAlive:    opts.KeepAlive,
		termSizeFunc: termSizeFunc,
	}
	c.updateScreen()
	return c, nil
}

// Run starts the client loop. Blocks until the player quits, goes idle for
// too long or the server shuts down.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)
	defer c.lobby.Unregister(c.session.ID)

	lastTime := time.Now()

	for c.state.Running {
		frameStart := time.Now()
		delta := frameStart.Sub(lastTime)
		lastTime = frameStart

		c.processInput(frameStart)
		c.processNotices()
		c.processEvents(frameStart)
		c.updateScreen()

		if c.state.Screen == ScreenShutdown {
			c.updateShutdownState(delta)
		} else {
			c.syncScreen()
		}

		if err := c.drawFrame(frameStart); err != nil {
			return err
		}

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	draw.ClearScreen(c.writer)
	return nil
}

// processInput reads pending keys and applies them to the current screen.
func (c *Client) processInput(now time.Time) {
	in := input.ReadInput(c.inputStream)

	idle := now.Sub(c.lastInput).Seconds()
	switch {
	case len(in.Keys) > 0:
		c.lastInput = now
		c.state.isInactive = false
	case c.keepAlive:
	case idle > config.InactivityDisconnectUser:
		c.state.Running = false
	case idle > config.InactivityWarnUser:
		c.state.isInactive = true
	}

	if in.Quit() {
		c.state.Running = false
		return
	}
	for _, k := range in.Keys {
		c.handleKey(k, now)
	}
}

// handleKey applies one key press.
func (c *Client) handleKey(k input.Key, now time.Time) {
	if k.Kind == input.KeyTab {
		if c.audio.ToggleMute() {
			c.state.setFlash("Sound off", draw.Dim, now)
		} else {
			c.state.setFlash("Sound on", draw.Dim, now)
		}
		return
	}

	switch c.state.Screen {
	case ScreenTitle:
		if k.Kind == input.KeyEnter {
			c.startGame(now)
		}
	case ScreenPlaying:
		text, submitted := c.state.Line.Apply(k)
		if k.Kind == input.KeyRune || k.Kind == input.KeyBackspace {
			c.audio.Play(audio.EffectTypingKey)
		}
		if submitted {
			c.submit(text, now)
		}
	case ScreenWaveComplete:
		if k.Kind == input.KeyEnter {
			c.audio.Play(audio.EffectButtonClick)
			if err := c.engine.ContinueWave(); err != nil {
				c.commandFailed(err, now)
			}
			c.syncScreen()
		}
	case ScreenGameOver:
		if k.Kind == input.KeyEnter {
			c.audio.Play(audio.EffectButtonClick)
			c.startGame(now)
		}
	case ScreenShutdown:
		if k.Kind == input.KeyEnter || (k.Kind == input.KeyRune && (k.Rune == 'q' || k.Rune == 'Q')) {
			c.state.Running = false
		}
	}
}

// startGame starts or restarts the game.
func (c *Client) startGame(now time.Time) {
	if err := c.engine.Start(); err != nil {
		c.commandFailed(err, now)
	}
	c.state.Line.Clear()
	c.syncScreen()
}

// submit sends a typed fix to the engine. Blank lines are ignored.
func (c *Client) submit(text string, now time.Time) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	res, err := c.engine.SubmitFix(text)
	if err != nil {
		c.commandFailed(err, now)
		c.syncScreen()
		return
	}

	switch res.Outcome {
	case engine.OutcomeSuccess:
		msg := fmt.Sprintf("Patched %s  +%d", res.Threat.Name, res.Points)
		if res.TimeBonus > 0 {
			msg += fmt.Sprintf(" (speed bonus %d)", res.TimeBonus)
		}
		c.state.setFlash(msg, draw.Green, now)
	case engine.OutcomeFailure:
		c.state.setFlash(fmt.Sprintf("No threat is fixed by %q  -%d health", text, res.Penalty), draw.Red, now)
	}
	c.syncScreen()
}

// commandFailed reports a rejected command. A stopped engine ends the session.
func (c *Client) commandFailed(err error, now time.Time) {
	if errors.Is(err, engine.ErrStopped) {
		c.state.Running = false
		return
	}
	c.logger.Debug("command rejected", "err", err)
	c.state.setFlash("Not now", draw.Dim, now)
}

// processNotices handles notices from the hub.
func (c *Client) processNotices() {
	for {
		select {
		case n, ok := <-c.session.Notices:
			if !ok {
				// Hub dropped the session
				c.state.Running = false
				return
			}
			if n.Type == hub.NoticeServerShutdown && c.state.Screen != ScreenShutdown {
				c.state.Screen = ScreenShutdown
				c.state.shutdownTimer = config.ShutdownDisplaySeconds
			}
		default:
			return
		}
	}
}

// processEvents plays sounds and flashes messages for engine events.
func (c *Client) processEvents(now time.Time) {
	for {
		select {
		case ev := <-c.engine.Events():
			c.handleEvent(ev, now)
		default:
			return
		}
	}
}

func (c *Client) handleEvent(ev engine.Event, now time.Time) {
	if effect, ok := effectFor(ev.Type); ok {
		c.audio.Play(effect)
	}
	switch ev.Type {
	case engine.EventThreatExpired:
		if ev.Threat != nil {
			c.state.setFlash(fmt.Sprintf("%s got through  -%d health", ev.Threat.Name, ev.Amount), draw.BrightRed, now)
		}
	case engine.EventLevelUp:
		c.state.setFlash(fmt.Sprintf("Level up! You are now level %d", ev.Level), draw.Yellow.With(draw.Bold), now)
	}
}

// effectFor maps an engine event to its sound effect.
func effectFor(t engine.EventType) (audio.Effect, bool) {
	switch t {
	case engine.EventGameStarted:
		return audio.EffectGameStart, true
	case engine.EventThreatSpawned:
		return audio.EffectThreatAppear, true
	case engine.EventThreatPatched:
		return audio.EffectPatchSuccess, true
	case engine.EventFixRejected:
		return audio.EffectPatchFail, true
	case engine.EventThreatExpired:
		return audio.EffectThreatExpire, true
	case engine.EventLevelUp:
		return audio.EffectAlert, true
	case engine.EventWaveComplete:
		return audio.EffectWaveComplete, true
	case engine.EventGameOver:
		return audio.EffectGameOver, true
	default:
		return 0, false
	}
}

// syncScreen follows the engine phase. Leaving play clears the typed line.
func (c *Client) syncScreen() {
	if c.state.Screen == ScreenShutdown {
		return
	}
	next := screenFor(c.engine.Snapshot().Phase)
	if next != ScreenPlaying {
		c.state.Line.Clear()
	}
	c.state.Screen = next
}

// updateScreen handles terminal resize, clamping to the max frame size.
func (c *Client) updateScreen() {
	termWidth, termHeight, err := c.termSizeFunc()
	if err != nil {
		return
	}
	f := draw.FitFrame(termWidth, termHeight, config.MaxTermWidth, config.MaxTermHeight)
	if f != c.frame {
		c.frame = f
		c.state.needsClear = true
	}
}

// updateShutdownState handles the shutdown screen countdown.
func (c *Client) updateShutdownState(delta time.Duration) {
	c.state.shutdownTimer -= delta.Seconds()
	if c.state.shutdownTimer <= 0 {
		c.state.Running = false
	}
}
