package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/wouk1805/prepgenius/internal/audio"
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/session"
	"github.com/wouk1805/prepgenius/internal/voice"
)

// SessionService is the part of the session manager the transport drives.
type SessionService interface {
	Start(ctx context.Context, setup session.Setup, dev session.Devices) (session.Snapshot, error)
	SubmitText(ctx context.Context, sessionID, text string) (session.Snapshot, error)
	Skip(ctx context.Context, sessionID string) (session.Snapshot, error)
	StartRecording(sessionID string) error
	SubmitRecording(ctx context.Context, sessionID string) (session.Snapshot, error)
	EndEarly(sessionID string) (session.Snapshot, error)
	Reset(sessionID string) (session.Snapshot, error)
	Release(sessionID string) error
	SwitchInterviewer(sessionID string, index int) (session.Snapshot, error)
	SetEngine(sessionID string, engine voice.Engine) (session.Snapshot, error)
	ProbeVoice(ctx context.Context, sessionID string) (bool, error)
	GenerateFeedback(ctx context.Context, sessionID string, frames []feedback.FrameAnalysis) (*feedback.Report, error)
	GetReport(ctx context.Context, sessionID string) (*feedback.Report, error)
	Snapshot(sessionID string) (session.Snapshot, error)
	Events(sessionID string) (<-chan session.Event, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	echo     *echo.Echo
	addr     string
	sessions SessionService
	decoders audio.DecoderFactory

	mu    sync.Mutex
	conns map[*conn]struct{}
}

func NewServer(addr string, sessions SessionService, decoders audio.DecoderFactory) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		addr:     addr,
		sessions: sessions,
		decoders: decoders,
		conns:    make(map[*conn]struct{}),
	}
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/ws", s.serveWebSocket)
	e.GET("/sessions/:id", s.getSnapshot)
	e.GET("/sessions/:id/report", s.getReport)
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and closes open websockets, which the
// HTTP server does not track once they are hijacked.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	return err
}

func (s *Server) getSnapshot(c echo.Context) error {
	snap, err := s.sessions.Snapshot(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) getReport(c echo.Context) error {
	report, err := s.sessions.GetReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case session.IsUserError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		slog.Error("http request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) serveWebSocket(ec echo.Context) error {
	ws, err := upgrader.Upgrade(ec.Response(), ec.Request(), nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	c := newConn(ws, s.decoders)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	h := &handler{sessions: s.sessions, conn: c}
	h.run()
	return nil
}

// handler runs the command loop of one connection. A connection drives at
// most one session at a time.
type handler struct {
	sessions SessionService
	conn     *conn

	// startMu serializes start commands so a connection never owns two
	// sessions at once.
	startMu sync.Mutex

	mu        sync.Mutex
	sessionID string
}

func (h *handler) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer h.conn.close()
	defer h.abandon()
	defer cancel()

	slog.Info("client connected")
	for {
		mt, data, err := h.conn.ws.ReadMessage()
		if err != nil {
			slog.Info("client disconnected", "error", err)
			return
		}
		if mt == websocket.BinaryMessage {
			h.conn.handleAudio(data)
			continue
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(clientMessage{}, serverMessage{Type: msgError, Code: errorCodeUser, Message: "malformed message"})
			continue
		}
		h.dispatch(ctx, msg)
	}
}

// dispatch handles quick commands inline so audio frames and client
// confirmations keep flowing, and runs commands that wait on an oracle in
// their own goroutine.
func (h *handler) dispatch(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case cmdPlaybackDone:
		h.conn.resolve(h.conn.playbacks, msg.PlaybackID, msg.Error)
	case cmdSpeakDone:
		h.conn.resolve(h.conn.speeches, msg.SpeakID, msg.Error)
	case cmdVoices:
		h.conn.setVoices(msg.Voices)
		h.reply(msg, serverMessage{Type: msgResult})
	case cmdRecordStart:
		h.withSession(msg, func(id string) (serverMessage, error) {
			if err := h.sessions.StartRecording(id); err != nil {
				return serverMessage{}, err
			}
			return h.snapshotResult(id)
		})
	case cmdEnd:
		h.withSession(msg, func(id string) (serverMessage, error) {
			return snapshotResult(h.sessions.EndEarly(id))
		})
	case cmdReset:
		h.withSession(msg, func(id string) (serverMessage, error) {
			snap, err := h.sessions.Reset(id)
			if err != nil {
				return serverMessage{}, err
			}
			h.setSession("")
			h.release(id)
			return serverMessage{Type: msgResult, Snapshot: &snap}, nil
		})
	case cmdSwitchInterviewer:
		h.withSession(msg, func(id string) (serverMessage, error) {
			return snapshotResult(h.sessions.SwitchInterviewer(id, msg.Index))
		})
	case cmdSetEngine:
		h.withSession(msg, func(id string) (serverMessage, error) {
			return snapshotResult(h.sessions.SetEngine(id, voice.ParseEngine(msg.Engine)))
		})
	case cmdStart:
		go h.start(ctx, msg)
	case cmdSubmitText:
		go h.withSession(msg, func(id string) (serverMessage, error) {
			return snapshotResult(h.sessions.SubmitText(ctx, id, msg.Text))
		})
	case cmdSkip:
		go h.withSession(msg, func(id string) (serverMessage, error) {
			return snapshotResult(h.sessions.Skip(ctx, id))
		})
	case cmdRecordStop:
		go h.withSession(msg, func(id string) (serverMessage, error) {
			return snapshotResult(h.sessions.SubmitRecording(ctx, id))
		})
	case cmdFeedback:
		go h.withSession(msg, func(id string) (serverMessage, error) {
			report, err := h.sessions.GenerateFeedback(ctx, id, msg.Frames)
			if err != nil {
				return serverMessage{}, err
			}
			return serverMessage{Type: msgResult, Report: report}, nil
		})
	case cmdProbeVoice:
		go h.withSession(msg, func(id string) (serverMessage, error) {
			ok, err := h.sessions.ProbeVoice(ctx, id)
			if err != nil {
				return serverMessage{}, err
			}
			return serverMessage{Type: msgResult, Available: &ok}, nil
		})
	default:
		h.reply(msg, serverMessage{Type: msgError, Code: errorCodeUser, Message: fmt.Sprintf("unknown command %q", msg.Type)})
	}
}

func (h *handler) start(ctx context.Context, msg clientMessage) {
	if msg.Setup == nil {
		h.reply(msg, serverMessage{Type: msgError, Code: errorCodeUser, Message: "start requires a setup"})
		return
	}
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if prev := h.currentSession(); prev != "" {
		if _, err := h.sessions.Reset(prev); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			slog.Warn("failed to reset previous session", "error", err, "session_id", prev)
		}
		h.setSession("")
		h.release(prev)
	}
	snap, err := h.sessions.Start(ctx, msg.Setup.toSetup(), session.Devices{
		Sink:       h.conn,
		Speaker:    h.conn,
		Microphone: h.conn,
	})
	if err != nil {
		h.replyError(msg, err)
		return
	}
	events, err := h.sessions.Events(snap.SessionID)
	if err != nil {
		h.release(snap.SessionID)
		h.replyError(msg, err)
		return
	}
	h.setSession(snap.SessionID)
	go h.forward(events)
	h.reply(msg, serverMessage{Type: msgResult, Snapshot: &snap})
}

// forward relays session events until the session leaves memory or the
// connection closes.
func (h *handler) forward(events <-chan session.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.conn.writeJSON(serverMessage{Type: msgEvent, Event: &ev}); err != nil {
				slog.Debug("failed to forward session event", "error", err, "session_id", ev.SessionID)
			}
		case <-h.conn.done:
			return
		}
	}
}

func (h *handler) withSession(msg clientMessage, fn func(id string) (serverMessage, error)) {
	id := h.currentSession()
	if id == "" {
		h.reply(msg, serverMessage{Type: msgError, Code: errorCodeUser, Message: "no session started on this connection"})
		return
	}
	resp, err := fn(id)
	if err != nil {
		h.replyError(msg, err)
		return
	}
	h.reply(msg, resp)
}

func (h *handler) snapshotResult(id string) (serverMessage, error) {
	return snapshotResult(h.sessions.Snapshot(id))
}

func snapshotResult(snap session.Snapshot, err error) (serverMessage, error) {
	if err != nil {
		return serverMessage{}, err
	}
	return serverMessage{Type: msgResult, Snapshot: &snap}, nil
}

// replyError reports failures the candidate can fix verbatim and hides
// collaborator failures behind a generic message. Cancelled work is not an
// error.
func (h *handler) replyError(msg clientMessage, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		h.reply(msg, serverMessage{Type: msgCancelled})
	case session.IsUserError(err):
		h.reply(msg, serverMessage{Type: msgError, Code: errorCodeUser, Message: err.Error()})
	default:
		slog.Error("command failed", "error", err, "command", msg.Type, "session_id", h.currentSession())
		h.reply(msg, serverMessage{Type: msgError, Code: errorCodeInternal, Message: "something went wrong, please try again"})
	}
}

func (h *handler) reply(msg clientMessage, resp serverMessage) {
	resp.RequestID = msg.RequestID
	if err := h.conn.writeJSON(resp); err != nil {
		slog.Debug("failed to write reply", "error", err, "command", msg.Type)
	}
}

// abandon hands the connection's session back when the client goes away.
// A running interview is archived as aborted.
func (h *handler) abandon() {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if id := h.currentSession(); id != "" {
		h.setSession("")
		h.release(id)
	}
}

func (h *handler) release(id string) {
	if err := h.sessions.Release(id); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		slog.Warn("failed to release session", "error", err, "session_id", id)
	}
}

func (h *handler) currentSession() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

func (h *handler) setSession(id string) {
	h.mu.Lock()
	h.sessionID = id
	h.mu.Unlock()
}
