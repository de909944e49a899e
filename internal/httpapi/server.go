// Package httpapi exposes the REST and websocket surface of the
// conversation service.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"parley/internal/config"
	"parley/internal/engine"
	"parley/internal/memory"
	"parley/internal/observability"
	"parley/internal/session"
	"parley/internal/topics"
)

type Server struct {
	cfg         config.Config
	sessions    *session.Manager
	archive     memory.Archive
	metrics     *observability.Metrics
	backendName string
	upgrader    websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, archive memory.Archive, metrics *observability.Metrics, backendName string) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    sessions,
		archive:     archive,
		metrics:     metrics,
		backendName: backendName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless the
				// deployment explicitly opts out.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Post("/v1/sessions/{id}/chat", s.handleChat)
	r.Get("/v1/sessions/{id}/context", s.handleContext)
	r.Get("/v1/sessions/{id}/stats", s.handleStats)
	r.Post("/v1/sessions/{id}/clear", s.handleClear)
	r.Post("/v1/sessions/{id}/save", s.handleSave)
	r.Post("/v1/sessions/{id}/end", s.handleEndSession)

	r.Get("/v1/topics", s.handleListTopics)
	r.Post("/v1/topics/start", s.handleStartTopic)

	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": s.backendName,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"backend":         s.backendName,
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type createSessionRequest struct {
	Label string `json:"label"`
}

type createSessionResponse struct {
	SessionID       string         `json:"session_id"`
	Label           string         `json:"label,omitempty"`
	Status          session.Status `json:"status"`
	Backend         string         `json:"backend"`
	InactivityTTLMS int64          `json:"inactivity_ttl_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess := s.sessions.Create(strings.TrimSpace(req.Label))
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	s.metrics.ObserveSessionEvent("created")

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       sess.ID,
		Label:           sess.Label,
		Status:          sess.Status,
		Backend:         s.backendName,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Reply   string `json:"reply"`
	Backend string `json:"backend"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionEngine(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := eng.Respond(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyInput) {
			respondError(w, http.StatusBadRequest, "empty_input", "text must not be empty")
			return
		}
		respondError(w, http.StatusInternalServerError, "generation_failed", err.Error())
		return
	}
	_ = s.sessions.Touch(chi.URLParam(r, "id"))

	respondJSON(w, http.StatusOK, chatResponse{Reply: reply, Backend: s.backendName})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionEngine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, eng.ContextSummary())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionEngine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, eng.Stats())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionEngine(w, r)
	if !ok {
		return
	}
	eng.Clear()
	s.metrics.ObserveSessionEvent("cleared")
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	eng, ok := s.sessionEngine(w, r)
	if !ok {
		return
	}
	if s.archive == nil {
		respondError(w, http.StatusNotImplemented, "archive_disabled", "no archive configured")
		return
	}
	if err := eng.SaveTo(r.Context(), s.archive, id); err != nil {
		s.metrics.ObserveArchiveOp("save", "error")
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	s.metrics.ObserveArchiveOp("save", "ok")
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved", "session_id": id})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, eng, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if s.archive != nil {
		if err := eng.SaveTo(r.Context(), s.archive, id); err != nil {
			s.metrics.ObserveArchiveOp("save", "error")
		} else {
			s.metrics.ObserveArchiveOp("save", "ok")
		}
	}
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	s.metrics.ObserveSessionEvent("ended")
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"topics": topics.List()})
}

type startTopicRequest struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
}

func (s *Server) handleStartTopic(w http.ResponseWriter, r *http.Request) {
	var req startTopicRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	eng, err := s.sessions.Engine(req.SessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	starter, err := topics.RandomStarter(req.Topic)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_topic", err.Error())
		return
	}
	eng.Prime(starter)
	_ = s.sessions.Touch(req.SessionID)

	respondJSON(w, http.StatusOK, map[string]string{"starter": starter, "topic": req.Topic})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

// sessionEngine resolves the {id} path parameter to a live engine,
// writing the error response itself on failure.
func (s *Server) sessionEngine(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return nil, false
	}
	eng, err := s.sessions.Engine(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return nil, false
	}
	return eng, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
