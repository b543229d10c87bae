// Package web serves browser play over a websocket. Every connection gets
// its own session and engine from the hub.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/engine"
	"github.com/tomz197/patchtyper/internal/hub"
)

// Handler upgrades requests to websockets and runs one game per connection.
type Handler struct {
	lobby    *hub.Hub
	ui       config.UIConfig
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler registering sessions with h.
func NewHandler(h *hub.Hub, ui config.UIConfig, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		lobby:  h,
		ui:     ui,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "web"
	}
	sess, err := h.lobby.Register(name)
	if err != nil {
		_ = writeMessage(conn, outboundMessage{Type: msgError, Error: err.Error()})
		return
	}
	defer h.lobby.Unregister(sess.ID)

	if err := h.serve(conn, sess); err != nil {
		h.logger.Debug("websocket closed", "session", sess.ID.String()[:8], "err", err)
	}
}

// serve pumps commands in and frames out until the connection or the
// session ends. Only this goroutine writes to conn.
func (h *Handler) serve(conn *websocket.Conn, sess *hub.Session) error {
	done := make(chan struct{})
	defer close(done)

	commands := make(chan inboundMessage, 8)
	readErr := make(chan error, 1)
	conn.SetReadLimit(config.WebMaxMessageBytes)
	go func() {
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			select {
			case commands <- msg:
			case <-done:
				return
			}
		}
	}()

	eng := sess.Engine
	hello := outboundMessage{Type: msgHello, Hello: &helloDTO{
		Session:     sess.ID.String(),
		Username:    sess.Username,
		ShowFixHint: h.ui.ShowFixHint,
		HintStyle:   h.ui.HintStyle,
	}}
	if err := writeMessage(conn, hello); err != nil {
		return err
	}
	if err := h.pushSnapshot(conn, eng); err != nil {
		return err
	}

	ticker := time.NewTicker(config.SnapshotPushInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-readErr:
			return err

		case msg := <-commands:
			if err := h.handle(conn, eng, msg); err != nil {
				return err
			}

		case ev := <-eng.Events():
			if err := writeMessage(conn, outboundMessage{Type: msgEvent, Event: newEventDTO(ev)}); err != nil {
				return err
			}

		case n, ok := <-sess.Notices:
			if !ok {
				return nil
			}
			if n.Type == hub.NoticeServerShutdown {
				_ = writeMessage(conn, outboundMessage{Type: msgShutdown})
				return nil
			}

		case <-ticker.C:
			if err := h.pushSnapshot(conn, eng); err != nil {
				return err
			}

		case <-eng.Done():
			return engine.ErrStopped
		}
	}
}

// handle applies one command. Rejected commands are answered with an error
// frame; only write failures and a stopped engine end the connection.
func (h *Handler) handle(conn *websocket.Conn, eng *engine.Engine, msg inboundMessage) error {
	var err error
	switch msg.Type {
	case cmdStart:
		err = eng.Start()
	case cmdContinue:
		err = eng.ContinueWave()
	case cmdSubmit:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return nil
		}
		var res engine.Result
		res, err = eng.SubmitFix(text)
		if err == nil {
			out := outboundMessage{Type: msgResult, Result: newResultDTO(res, eng.Now())}
			if werr := writeMessage(conn, out); werr != nil {
				return werr
			}
		}
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}

	if errors.Is(err, engine.ErrStopped) {
		return err
	}
	if err != nil {
		if werr := writeMessage(conn, outboundMessage{Type: msgError, Error: err.Error()}); werr != nil {
			return werr
		}
	}
	return h.pushSnapshot(conn, eng)
}

func (h *Handler) pushSnapshot(conn *websocket.Conn, eng *engine.Engine) error {
	snap := newSnapshotDTO(eng.Snapshot(), eng.Now())
	return writeMessage(conn, outboundMessage{Type: msgSnapshot, Snapshot: snap})
}

func writeMessage(conn *websocket.Conn, msg outboundMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(config.WebWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
