package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
)

const eventBuffer = 64

// Engine runs a Game on a single goroutine. Commands, spawn ticks and expiry
// ticks are applied in arrival order; readers see the latest Snapshot.
type Engine struct {
	game     *Game
	clock    Clock
	rng      Rand
	logger   *log.Logger
	commands chan command
	events   chan Event
	snapshot atomic.Pointer[Snapshot]
	done     chan struct{}

	// Owned by Run
	timers    timers
	epoch     uint64
	lastPhase Phase
}

// timers is the ticker pair armed for one stretch of play. Run only selects
// on the current pair, so a stopped pair can never deliver into a later one.
// The epoch labels the pair in logs.
type timers struct {
	epoch  uint64
	spawn  Ticker
	expiry Ticker
}

func (t *timers) spawnC() <-chan time.Time {
	if t.spawn == nil {
		return nil
	}
	return t.spawn.C()
}

func (t *timers) expiryC() <-chan time.Time {
	if t.expiry == nil {
		return nil
	}
	return t.expiry.C()
}

type command struct {
	fn    func(g *Game, now time.Time) (Result, error)
	reply chan reply
}

type reply struct {
	result Result
	err    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand replaces the random source used to pick templates.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an idle engine. Call Run to start processing commands.
func New(cfg config.Config, cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		clock:    RealClock{},
		logger:   log.Default(),
		commands: make(chan command),
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.game = NewGame(cfg, cat, e.rng)
	e.lastPhase = e.game.State().Phase
	e.snapshot.Store(e.game.Snapshot(e.clock.Now()))
	return e
}

// Run processes commands and ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	defer e.disarm()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-e.commands:
			now := e.clock.Now()
			res, err := cmd.fn(e.game, now)
			e.checkErr(err)
			e.settle(now)
			cmd.reply <- reply{result: res, err: err}

		case at := <-e.timers.spawnC():
			e.game.Spawn(at)
			e.settle(at)

		case at := <-e.timers.expiryC():
			_, err := e.game.CheckExpiry(at)
			e.checkErr(err)
			e.settle(at)
		}
	}
}

// Start begins a new game from Idle or GameOver.
func (e *Engine) Start() error {
	_, err := e.do(func(g *Game, now time.Time) (Result, error) {
		if err := g.Start(now); err != nil {
			return Result{}, err
		}
		// Fresh tickers for the new session
		e.disarm()
		return Result{}, nil
	})
	return err
}

// SubmitFix resolves a typed fix. It returns ErrInvalidState outside of play.
func (e *Engine) SubmitFix(text string) (Result, error) {
	return e.do(func(g *Game, now time.Time) (Result, error) {
		return g.SubmitFix(text, now)
	})
}

// ContinueWave starts the next wave after a wave was completed.
func (e *Engine) ContinueWave() error {
	_, err := e.do(func(g *Game, now time.Time) (Result, error) {
		return Result{}, g.ContinueWave(now)
	})
	return err
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Events returns the notification stream. Events are dropped when the
// reader falls behind.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

func (e *Engine) do(fn func(g *Game, now time.Time) (Result, error)) (Result, error) {
	cmd := command{fn: fn, reply: make(chan reply, 1)}
	select {
	case e.commands <- cmd:
	case <-e.done:
		return Result{}, ErrStopped
	}
	// An accepted command is always answered
	r := <-cmd.reply
	return r.result, r.err
}

// settle arms or disarms the tickers to match the phase, forwards events
// and publishes a snapshot.
func (e *Engine) settle(now time.Time) {
	st := e.game.State()

	// The spawn interval only changes on Start and ContinueWave, both of
	// which leave a disarmed phase, so a fresh pair always picks it up.
	if st.Phase == PhasePlaying {
		if e.timers.spawn == nil {
			e.arm(st.SpawnInterval)
		}
	} else {
		e.disarm()
	}

	for _, ev := range e.game.DrainEvents() {
		select {
		case e.events <- ev:
		default:
			e.logger.Debug("event dropped", "type", ev.Type)
		}
	}

	e.snapshot.Store(e.game.Snapshot(now))

	if st.Phase != e.lastPhase {
		e.logger.Debug("phase changed",
			"from", e.lastPhase,
			"to", st.Phase,
			"wave", st.Wave,
			"score", st.Score,
			"health", st.Health,
		)
		e.lastPhase = st.Phase
	}
}

func (e *Engine) arm(spawnEvery time.Duration) {
	e.epoch++
	e.timers = timers{
		epoch:  e.epoch,
		spawn:  e.clock.NewTicker(spawnEvery),
		expiry: e.clock.NewTicker(e.game.Policy().CheckInterval()),
	}
	e.logger.Debug("tickers armed", "epoch", e.epoch, "spawn_every", spawnEvery)
}

func (e *Engine) disarm() {
	if e.timers.spawn != nil {
		e.timers.spawn.Stop()
	}
	if e.timers.expiry != nil {
		e.timers.expiry.Stop()
		e.logger.Debug("tickers stopped", "epoch", e.timers.epoch)
	}
	e.timers = timers{}
}

func (e *Engine) checkErr(err error) {
	if errors.Is(err, ErrCorruptState) {
		e.logger.Error("state update rejected", "err", err)
	}
}
