package client

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/patchtyper/internal/audio"
	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/draw"
	"github.com/tomz197/patchtyper/internal/engine"
	"github.com/tomz197/patchtyper/internal/hub"
	"github.com/tomz197/patchtyper/internal/input"
)

// recorder is an audio.Player that remembers what it played.
type recorder struct {
	mu     sync.Mutex
	played []audio.Effect
	muted  bool
}

func (r *recorder) Play(e audio.Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, e)
}

func (r *recorder) ToggleMute() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muted = !r.muted
	return r.muted
}

func (r *recorder) Muted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted
}

func (r *recorder) has(e audio.Effect) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.played {
		if p == e {
			return true
		}
	}
	return false
}

type harness struct {
	client *Client
	clock  *engine.FakeClock
	sound  *recorder
	out    *bytes.Buffer
	lobby  *hub.Hub
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	clock := engine.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := log.New(io.Discard)
	h := hub.New(cfg, catalog.Default(), logger, engine.WithClock(clock))

	sound := &recorder{}
	out := &bytes.Buffer{}
	c, err := NewClient(h, bufio.NewReader(strings.NewReader("")), out, ClientOptions{
		TermSizeFunc: func() (int, int, error) { return 100, 40, nil },
		Username:     "tester",
		Audio:        sound,
		UI:           cfg.UI,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { h.Unregister(c.session.ID) })
	return &harness{client: c, clock: clock, sound: sound, out: out, lobby: h}
}

func (h *harness) typeLine(s string, now time.Time) {
	for _, r := range s {
		h.client.handleKey(input.Key{Kind: input.KeyRune, Rune: r}, now)
	}
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)
}

// spawn advances the clock one spawn interval and waits for the threat.
func (h *harness) spawn(t *testing.T) engine.ThreatView {
	t.Helper()
	before := len(h.client.engine.Snapshot().Threats)
	h.clock.Advance(h.client.engine.Snapshot().SpawnInterval)
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := h.client.engine.Snapshot()
		if len(snap.Threats) > before {
			return snap.Threats[len(snap.Threats)-1]
		}
		if time.Now().After(deadline) {
			t.Fatal("no threat spawned")
		}
		time.Sleep(time.Millisecond)
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.UI.HintStyle = config.HintFull
	return cfg
}

func TestEffectForEvents(t *testing.T) {
	tests := []struct {
		event engine.EventType
		want  audio.Effect
		ok    bool
	}{
		{engine.EventGameStarted, audio.EffectGameStart, true},
		{engine.EventThreatSpawned, audio.EffectThreatAppear, true},
		{engine.EventThreatPatched, audio.EffectPatchSuccess, true},
		{engine.EventFixRejected, audio.EffectPatchFail, true},
		{engine.EventThreatExpired, audio.EffectThreatExpire, true},
		{engine.EventLevelUp, audio.EffectAlert, true},
		{engine.EventWaveComplete, audio.EffectWaveComplete, true},
		{engine.EventGameOver, audio.EffectGameOver, true},
		{engine.EventDamageApplied, 0, false},
		{engine.EventWaveStarted, 0, false},
	}
	for _, tt := range tests {
		got, ok := effectFor(tt.event)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("effectFor(%s) = %s %v, want %s %v", tt.event, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnterStartsGame(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()

	if h.client.state.Screen != ScreenTitle {
		t.Fatalf("expected the title screen, got %d", h.client.state.Screen)
	}
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)
	if h.client.state.Screen != ScreenPlaying {
		t.Fatalf("expected the playing screen, got %d", h.client.state.Screen)
	}

	h.client.processEvents(now)
	if !h.sound.has(audio.EffectGameStart) {
		t.Error("expected the game start sound")
	}
}

func TestSubmitPatchesThreat(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)

	th := h.spawn(t)
	h.typeLine(strings.ToUpper(th.Fix), now)

	snap := h.client.engine.Snapshot()
	if len(snap.Threats) != 0 {
		t.Fatalf("expected the threat patched, %d live", len(snap.Threats))
	}
	if snap.Score == 0 || snap.DefeatedThisWave != 1 {
		t.Errorf("unexpected state after patch: score %d defeated %d", snap.Score, snap.DefeatedThisWave)
	}
	if text, _ := h.client.state.flashText(now); !strings.HasPrefix(text, "Patched "+th.Name) {
		t.Errorf("unexpected flash %q", text)
	}
	if h.client.state.Line.Len() != 0 {
		t.Error("line not cleared after submit")
	}

	h.client.processEvents(now)
	for _, e := range []audio.Effect{audio.EffectTypingKey, audio.EffectThreatAppear, audio.EffectPatchSuccess} {
		if !h.sound.has(e) {
			t.Errorf("expected %s to be played", e)
		}
	}
}

func TestWrongFixCostsHealth(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)

	h.typeLine("reboot everything", now)

	snap := h.client.engine.Snapshot()
	if snap.Health != 295 {
		t.Errorf("expected health 295, got %d", snap.Health)
	}
	text, style := h.client.state.flashText(now)
	if !strings.Contains(text, "-5 health") || style != draw.Red {
		t.Errorf("unexpected flash %q", text)
	}
}

func TestBlankSubmissionIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)

	h.typeLine("   ", now)

	if got := h.client.engine.Snapshot().Health; got != 300 {
		t.Errorf("blank line cost health: %d", got)
	}
	if text, _ := h.client.state.flashText(now); text != "" {
		t.Errorf("unexpected flash %q", text)
	}
}

func TestWaveCompleteAndContinue(t *testing.T) {
	cfg := testConfig()
	cfg.Waves.ThreatsPerWave = 1
	h := newHarness(t, cfg)
	now := time.Now()
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)

	th := h.spawn(t)
	h.typeLine(th.Fix, now)
	if h.client.state.Screen != ScreenWaveComplete {
		t.Fatalf("expected the wave complete screen, got %d", h.client.state.Screen)
	}

	if err := h.client.drawFrame(now); err != nil {
		t.Fatalf("drawFrame failed: %v", err)
	}
	out := h.out.String()
	for _, want := range []string{"WAVE 1 COMPLETE", "Wave bonus", "Health restored"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame is missing %q", want)
		}
	}

	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)
	if h.client.state.Screen != ScreenPlaying {
		t.Fatalf("expected play to resume, got %d", h.client.state.Screen)
	}
	if w := h.client.engine.Snapshot().Wave; w != 2 {
		t.Errorf("expected wave 2, got %d", w)
	}
}

func TestGameOverShowsShareLine(t *testing.T) {
	cfg := testConfig()
	cfg.Player.InitialHealth = 5
	h := newHarness(t, cfg)
	now := time.Now()
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)

	h.typeLine("wrong", now)
	if h.client.state.Screen != ScreenGameOver {
		t.Fatalf("expected the game over screen, got %d", h.client.state.Screen)
	}
	if err := h.client.drawFrame(now); err != nil {
		t.Fatalf("drawFrame failed: %v", err)
	}
	if !strings.Contains(h.out.String(), "I scored 0 points") {
		t.Error("frame is missing the share line")
	}

	// Enter restarts
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)
	if h.client.state.Screen != ScreenPlaying {
		t.Errorf("expected a restart, got %d", h.client.state.Screen)
	}
	if got := h.client.engine.Snapshot().Health; got != 5 {
		t.Errorf("expected full health after restart, got %d", got)
	}
}

func TestDrawPlayingFrame(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()
	h.client.handleKey(input.Key{Kind: input.KeyEnter}, now)
	th := h.spawn(t)

	if err := h.client.drawFrame(now); err != nil {
		t.Fatalf("drawFrame failed: %v", err)
	}
	out := h.out.String()
	for _, want := range []string{"PATCH TYPER", "HEALTH", "PATCHED", th.Name, th.Fix, "300/300"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame is missing %q", want)
		}
	}
	// Only the first frame clears the terminal
	h.out.Reset()
	if err := h.client.drawFrame(now); err != nil {
		t.Fatalf("drawFrame failed: %v", err)
	}
	if strings.Contains(h.out.String(), "\033[2J") {
		t.Error("unchanged screen should not be cleared")
	}
}

func TestTitleListsDefenders(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()

	if err := h.client.drawFrame(now); err != nil {
		t.Fatalf("drawFrame failed: %v", err)
	}
	if strings.Contains(h.out.String(), "defenders online") {
		t.Error("a lone player should not see the defenders list")
	}

	rival, err := h.lobby.Register("rival")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	t.Cleanup(func() { h.lobby.Unregister(rival.ID) })

	h.out.Reset()
	if err := h.client.drawFrame(now); err != nil {
		t.Fatalf("drawFrame failed: %v", err)
	}
	out := h.out.String()
	for _, want := range []string{"2 defenders online", "tester", "rival", "wave 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame is missing %q", want)
		}
	}
}

func TestTabTogglesMute(t *testing.T) {
	h := newHarness(t, testConfig())
	now := time.Now()

	h.client.handleKey(input.Key{Kind: input.KeyTab}, now)
	if !h.sound.Muted() {
		t.Fatal("expected muted")
	}
	if text, _ := h.client.state.flashText(now); text != "Sound off" {
		t.Errorf("unexpected flash %q", text)
	}
	h.client.handleKey(input.Key{Kind: input.KeyTab}, now)
	if h.sound.Muted() {
		t.Error("expected unmuted")
	}
}

func TestShutdownNotice(t *testing.T) {
	h := newHarness(t, testConfig())
	h.client.session.Notices <- hub.Notice{Type: hub.NoticeServerShutdown}

	h.client.processNotices()
	if h.client.state.Screen != ScreenShutdown {
		t.Fatalf("expected the shutdown screen, got %d", h.client.state.Screen)
	}
	h.client.syncScreen()
	if h.client.state.Screen != ScreenShutdown {
		t.Fatal("shutdown screen must not follow the engine phase")
	}

	h.client.updateShutdownState(time.Second)
	if !h.client.state.Running {
		t.Fatal("disconnected too early")
	}
	h.client.updateShutdownState(time.Duration(config.ShutdownDisplaySeconds) * time.Second)
	if h.client.state.Running {
		t.Error("expected the client to stop after the countdown")
	}
}

func TestHints(t *testing.T) {
	fix := "enable mfa now"
	tests := []struct {
		ui   config.UIConfig
		want string
	}{
		{config.UIConfig{ShowFixHint: true, HintStyle: config.HintFull}, fix},
		{config.UIConfig{ShowFixHint: true, HintStyle: config.HintFloating}, fix},
		{config.UIConfig{ShowFixHint: true, HintStyle: config.HintPartial}, "e_____ m__ n__"},
		{config.UIConfig{ShowFixHint: true, HintStyle: config.HintNone}, ""},
		{config.UIConfig{ShowFixHint: false, HintStyle: config.HintFull}, ""},
	}
	for _, tt := range tests {
		if got := hintFor(tt.ui, fix); got != tt.want {
			t.Errorf("hintFor(%+v) = %q, want %q", tt.ui, got, tt.want)
		}
	}
}

func TestFractionStyle(t *testing.T) {
	tests := []struct {
		f    float64
		want draw.Style
	}{
		{1, draw.Green},
		{0.61, draw.Green},
		{0.6, draw.Yellow},
		{0.31, draw.Yellow},
		{0.3, draw.Red},
		{0, draw.Red},
	}
	for _, tt := range tests {
		if got := fractionStyle(tt.f); got != tt.want {
			t.Errorf("fractionStyle(%v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestFloatOffsetStaysInSpan(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		off := floatOffset(uint64(i), base.Add(time.Duration(i)*137*time.Millisecond), 30)
		if off < 0 || off > 30 {
			t.Fatalf("offset %d outside [0, 30]", off)
		}
	}
	if floatOffset(1, base, 0) != 0 {
		t.Error("zero span must give zero offset")
	}
}
