// Package hub keeps the registry of live game sessions. Every session owns
// its own engine; the hub starts it on registration, stops it when the
// player leaves and broadcasts server notices such as a shutdown.
package hub

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/engine"
)

// ErrShuttingDown is returned by Register once Shutdown has begun.
var ErrShuttingDown = errors.New("server is shutting down")

// NoticeType identifies a server notice.
type NoticeType int

const (
	NoticeServerShutdown NoticeType = iota
)

// Notice is sent from the hub to a session.
type Notice struct {
	Type NoticeType
}

// Session is one player's connection to the hub.
type Session struct {
	ID       uuid.UUID
	Username string
	Joined   time.Time
	Engine   *engine.Engine
	Notices  chan Notice // closed on Unregister

	cancel context.CancelFunc
}

// PlayerInfo summarizes a session for listings.
type PlayerInfo struct {
	Username string
	Phase    engine.Phase
	Score    int
	Level    int
	Wave     int
}

// Hub manages the sessions of one server process.
type Hub struct {
	cfg        config.Config
	catalog    *catalog.Catalog
	logger     *log.Logger
	engineOpts []engine.Option

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	closing  bool
}

// New creates an empty hub. opts are applied to every session engine after
// the hub's own logger option.
func New(cfg config.Config, cat *catalog.Catalog, logger *log.Logger, opts ...engine.Option) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		cfg:        cfg,
		catalog:    cat,
		logger:     logger,
		engineOpts: opts,
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// Register creates a session for username and starts its engine.
func (h *Hub) Register(username string) (*Session, error) {
	if len([]rune(username)) > config.MaxUsernameLength {
		username = string([]rune(username)[:config.MaxUsernameLength])
	}

	id := uuid.New()
	logger := h.logger.With("session", id.String()[:8], "user", username)
	opts := append([]engine.Option{engine.WithLogger(logger)}, h.engineOpts...)
	ctx, cancel := context.WithCancel(context.Background())

	sess := &Session{
		ID:       id,
		Username: username,
		Joined:   time.Now(),
		Engine:   engine.New(h.cfg, h.catalog, opts...),
		Notices:  make(chan Notice, 16),
		cancel:   cancel,
	}

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		cancel()
		return nil, ErrShuttingDown
	}
	h.sessions[id] = sess
	count := len(h.sessions)
	h.mu.Unlock()

	go sess.Engine.Run(ctx)
	logger.Info("session registered", "sessions", count)
	return sess, nil
}

// Unregister stops the session's engine and forgets it. Unknown ids are ignored.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
		close(sess.Notices)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return
	}
	sess.cancel()
	<-sess.Engine.Done()
	h.logger.Info("session unregistered", "session", id.String()[:8], "user", sess.Username, "sessions", count)
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Players lists the live sessions, best score first.
func (h *Hub) Players() []PlayerInfo {
	h.mu.RLock()
	players := make([]PlayerInfo, 0, len(h.sessions))
	for _, sess := range h.sessions {
		snap := sess.Engine.Snapshot()
		players = append(players, PlayerInfo{
			Username: sess.Username,
			Phase:    snap.Phase,
			Score:    snap.Score,
			Level:    snap.Level,
			Wave:     snap.Wave,
		})
	}
	h.mu.RUnlock()

	slices.SortFunc(players, func(a, b PlayerInfo) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return players
}

// Shutdown refuses new sessions, notifies every session and waits for them
// to leave (up to the given timeout). Sessions still present afterwards have
// their engines stopped.
func (h *Hub) Shutdown(timeout time.Duration) {
	h.mu.Lock()
	h.closing = true
	for _, sess := range h.sessions {
		select {
		case sess.Notices <- Notice{Type: NoticeServerShutdown}:
		default:
		}
	}
	h.mu.Unlock()

	// Wait for all sessions to disconnect, or timeout
	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

wait:
	for h.Len() > 0 {
		select {
		case <-deadline:
			break wait
		case <-ticker.C:
		}
	}

	h.mu.RLock()
	remaining := make([]*Session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		remaining = append(remaining, sess)
	}
	h.mu.RUnlock()

	for _, sess := range remaining {
		sess.cancel()
	}
	if len(remaining) > 0 {
		h.logger.Warn("shutdown timed out", "sessions", len(remaining))
	}
}
