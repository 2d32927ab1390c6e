package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/websocket"

	"veristream/internal/model"
	"veristream/internal/session"
)

// Server exposes the control surface (session CRUD over JSON) and the
// streaming surface (per-session event feed over WebSocket).
type Server struct {
	cfg model.ServerConfig
	mgr *session.Manager
	log *slog.Logger

	httpServer *http.Server
}

// New creates the server around a session manager.
func New(cfg model.ServerConfig, mgr *session.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, mgr: mgr, log: log}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCancelSession)
	mux.Handle("GET /ws/{id}", websocket.Handler(s.handleStream))
	return s.logRequests(mux)
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("server listening", "addr", s.cfg.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	ContentID string `json:"content_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	snap, err := s.mgr.Start(req.ContentID)
	if err != nil {
		s.writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCancelSession is idempotent: cancelling a session that already
// finished acknowledges without doing anything.
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.mgr.Cancel(id); err != nil {
		s.writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": id, "state": "cancelling"})
}

// handleStream sends the session's event feed over the socket as JSON,
// one event per message. ?from_seq resumes after the given sequence
// number; omitted or 0 replays everything still retained.
func (s *Server) handleStream(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	r := ws.Request()
	id := r.PathValue("id")

	var fromSeq uint64
	if raw := r.URL.Query().Get("from_seq"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			_ = websocket.JSON.Send(ws, map[string]string{"error": "invalid from_seq"})
			return
		}
		fromSeq = parsed
	}

	ch, cancel, err := s.mgr.Subscribe(id, fromSeq)
	if err != nil {
		_ = websocket.JSON.Send(ws, map[string]string{"error": err.Error()})
		return
	}
	defer cancel()

	s.log.Debug("stream attached", "session_id", id, "from_seq", fromSeq)
	for ev := range ch {
		if err := websocket.JSON.Send(ws, ev); err != nil {
			// Client went away; the subscription drops with us.
			return
		}
	}
}

func (s *Server) writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
