package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func runEngine(t *testing.T, opts ...Option) (*Engine, *FakeClock) {
	t.Helper()
	clock := NewFakeClock(t0)
	opts = append([]Option{
		WithClock(clock),
		WithRand(fixedRand(0)),
		WithLogger(log.New(io.Discard)),
	}, opts...)
	e := New(testConfig(), testCatalog(t), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-e.Done()
	})
	return e, clock
}

// waitIdle waits until every tick handed over so far has been applied.
func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	if _, err := e.do(func(*Game, time.Time) (Result, error) { return Result{}, nil }); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
}

func TestEngineIdleUntilStarted(t *testing.T) {
	e, clock := runEngine(t)

	if snap := e.Snapshot(); snap.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %s", snap.Phase)
	}
	clock.Advance(10 * time.Second)
	waitIdle(t, e)
	if clock.Tickers() != 0 {
		t.Errorf("expected no tickers while idle, got %d", clock.Tickers())
	}
	if len(e.Snapshot().Threats) != 0 {
		t.Error("threats spawned while idle")
	}
}

func TestEngineSpawnsOnInterval(t *testing.T) {
	e, clock := runEngine(t)
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if clock.Tickers() != 2 {
		t.Fatalf("expected spawn and expiry tickers, got %d", clock.Tickers())
	}

	clock.Advance(999 * time.Millisecond)
	waitIdle(t, e)
	if n := len(e.Snapshot().Threats); n != 0 {
		t.Fatalf("expected no spawn before the first interval, got %d", n)
	}

	clock.Advance(time.Millisecond)
	waitIdle(t, e)
	snap := e.Snapshot()
	if len(snap.Threats) != 1 {
		t.Fatalf("expected one threat after 1s, got %d", len(snap.Threats))
	}
	if !snap.Threats[0].SpawnedAt.Equal(t0.Add(time.Second)) {
		t.Errorf("expected spawn time from the tick, got %s", snap.Threats[0].SpawnedAt)
	}

	clock.Advance(10 * time.Second)
	waitIdle(t, e)
	if n := len(e.Snapshot().Threats); n > 6 {
		t.Fatalf("live threats %d exceed the cap", n)
	}
}

func TestEngineSubmitFix(t *testing.T) {
	e, clock := runEngine(t)
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	clock.Advance(time.Second)
	waitIdle(t, e)

	fix := e.Snapshot().Threats[0].Fix
	clock.Advance(400 * time.Millisecond)
	res, err := e.SubmitFix(fix)
	if err != nil {
		t.Fatalf("SubmitFix failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.Points != 20+9 {
		t.Fatalf("expected 29 points, got %+v", res)
	}

	// The snapshot is published before SubmitFix returns
	snap := e.Snapshot()
	if snap.Score != 29 || len(snap.Threats) != 0 {
		t.Errorf("expected score 29 and an empty board, got %d and %d threats", snap.Score, len(snap.Threats))
	}
}

func TestEngineExpiryEndsGameAndStopsTickers(t *testing.T) {
	cfg := testConfig()
	cfg.Player.InitialHealth = 30
	clock := NewFakeClock(t0)
	e := New(cfg, testCatalog(t), WithClock(clock), WithRand(fixedRand(0)), WithLogger(log.New(io.Discard)))
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-e.Done()
	}()
	go e.Run(ctx)

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First spawn at 1s with a 10s budget expires on the check at 11.5s
	clock.Advance(12 * time.Second)
	waitIdle(t, e)

	snap := e.Snapshot()
	if snap.Phase != PhaseGameOver || snap.Health != 0 {
		t.Fatalf("expected game over at zero health, got %s at %d", snap.Phase, snap.Health)
	}
	if len(snap.Threats) != 0 {
		t.Errorf("expected an empty board after game over, got %d", len(snap.Threats))
	}
	if clock.Tickers() != 0 {
		t.Errorf("expected tickers stopped after game over, got %d", clock.Tickers())
	}

	if _, err := e.SubmitFix("patch alpha"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after game over, got %v", err)
	}

	// Restart arms fresh tickers
	if err := e.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if clock.Tickers() != 2 {
		t.Fatalf("expected fresh tickers, got %d", clock.Tickers())
	}
	snap = e.Snapshot()
	if snap.Phase != PhasePlaying || snap.Health != 30 || snap.Score != 0 {
		t.Errorf("expected a fresh game, got %+v", snap.State)
	}

	// Nothing from the previous session's tickers reaches the new game
	clock.Advance(999 * time.Millisecond)
	waitIdle(t, e)
	if snap := e.Snapshot(); len(snap.Threats) != 0 || snap.Health != 30 {
		t.Fatalf("old session ticked into the restart: %d threats, health %d", len(snap.Threats), snap.Health)
	}
	clock.Advance(time.Millisecond)
	waitIdle(t, e)
	if n := len(e.Snapshot().Threats); n != 1 {
		t.Fatalf("expected the first spawn one interval after restart, got %d", n)
	}
}

func TestEngineWaveCompleteStopsTickers(t *testing.T) {
	e, clock := runEngine(t)
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		waitIdle(t, e)
		threats := e.Snapshot().Threats
		if len(threats) == 0 {
			t.Fatalf("round %d: nothing spawned", i)
		}
		if _, err := e.SubmitFix(threats[0].Fix); err != nil {
			t.Fatalf("round %d: SubmitFix failed: %v", i, err)
		}
	}

	if snap := e.Snapshot(); snap.Phase != PhaseWaveComplete {
		t.Fatalf("expected wave complete, got %s", snap.Phase)
	}
	if clock.Tickers() != 0 {
		t.Fatalf("expected tickers stopped between waves, got %d", clock.Tickers())
	}

	clock.Advance(30 * time.Second)
	waitIdle(t, e)
	if n := len(e.Snapshot().Threats); n != 0 {
		t.Fatalf("threats spawned between waves: %d", n)
	}

	if err := e.ContinueWave(); err != nil {
		t.Fatalf("ContinueWave failed: %v", err)
	}
	snap := e.Snapshot()
	if snap.Wave != 2 || snap.DefeatedThisWave != 0 || snap.SpawnInterval != 900*time.Millisecond {
		t.Errorf("unexpected wave 2 state %+v", snap.State)
	}
	if clock.Tickers() != 2 {
		t.Errorf("expected tickers re-armed, got %d", clock.Tickers())
	}
	if err := e.ContinueWave(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	// The new pair spawns at the wave 2 interval
	clock.Advance(899 * time.Millisecond)
	waitIdle(t, e)
	if n := len(e.Snapshot().Threats); n != 0 {
		t.Fatalf("spawned before the wave 2 interval: %d", n)
	}
	clock.Advance(time.Millisecond)
	waitIdle(t, e)
	if n := len(e.Snapshot().Threats); n != 1 {
		t.Fatalf("expected one spawn at 900ms, got %d", n)
	}
}

func TestEngineEvents(t *testing.T) {
	e, clock := runEngine(t)
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	clock.Advance(time.Second)
	waitIdle(t, e)

	want := []EventType{EventGameStarted, EventThreatSpawned}
	for _, typ := range want {
		select {
		case ev := <-e.Events():
			if ev.Type != typ {
				t.Fatalf("expected %s, got %s", typ, ev.Type)
			}
		default:
			t.Fatalf("expected %s event", typ)
		}
	}
}

func TestEngineStopped(t *testing.T) {
	clock := NewFakeClock(t0)
	e := New(testConfig(), testCatalog(t), WithClock(clock), WithLogger(log.New(io.Discard)))
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	<-e.Done()

	if clock.Tickers() != 0 {
		t.Errorf("expected tickers stopped on exit, got %d", clock.Tickers())
	}
	if err := e.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if _, err := e.SubmitFix("x"); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	// Advancing a stopped engine's clock must not block
	clock.Advance(time.Minute)
}
