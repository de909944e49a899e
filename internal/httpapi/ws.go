package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"parley/internal/engine"
	"parley/internal/protocol"
)

const (
	wsReadLimit     = 1 << 20
	wsReadDeadline  = 120 * time.Second
	wsWriteDeadline = 10 * time.Second
)

// handleChatWS runs a synchronous chat loop over one websocket
// connection: each client_message produces one assistant_reply, and
// control frames drive the session lifecycle.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.sessions.Engine(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ObserveSessionEvent("ws_connected")
	defer s.metrics.ObserveSessionEvent("ws_disconnected")

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ClientMessage:
			s.metrics.ObserveWSMessage("inbound", string(protocol.TypeClientMessage))
			s.serveWSMessage(r.Context(), conn, sessionID, msg)
		case protocol.ClientControl:
			s.metrics.ObserveWSMessage("inbound", string(protocol.TypeClientControl))
			if done := s.serveWSControl(r.Context(), conn, sessionID, msg); done {
				return
			}
		}
	}
}

func (s *Server) serveWSMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg protocol.ClientMessage) {
	eng, err := s.sessions.Engine(sessionID)
	if err != nil {
		s.writeWS(conn, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "session_not_found",
			Detail:    err.Error(),
		})
		return
	}

	reply, err := eng.Respond(ctx, msg.Text)
	if err != nil {
		s.writeWS(conn, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "generation_failed",
			Detail:    err.Error(),
		})
		return
	}
	_ = s.sessions.Touch(sessionID)

	s.writeWS(conn, protocol.AssistantReply{
		Type:      protocol.TypeAssistantReply,
		SessionID: sessionID,
		Text:      reply,
		Backend:   s.backendName,
	})
}

// serveWSControl executes one control action. It reports true when the
// connection should close.
func (s *Server) serveWSControl(ctx context.Context, conn *websocket.Conn, sessionID string, msg protocol.ClientControl) bool {
	eng, err := s.sessions.Engine(sessionID)
	if err != nil {
		s.writeWS(conn, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "session_not_found",
			Detail:    err.Error(),
		})
		return false
	}

	switch msg.Action {
	case protocol.ActionClear:
		eng.Clear()
		s.metrics.ObserveSessionEvent("cleared")
		s.writeWS(conn, protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: sessionID,
			Code:      "cleared",
		})
	case protocol.ActionStats:
		detail, _ := json.Marshal(eng.Stats())
		s.writeWS(conn, protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: sessionID,
			Code:      "stats",
			Detail:    string(detail),
		})
	case protocol.ActionSave:
		s.writeWS(conn, s.saveEvent(ctx, eng, sessionID))
	case protocol.ActionEnd:
		if _, eng, err := s.sessions.End(sessionID); err == nil && s.archive != nil {
			if err := eng.SaveTo(ctx, s.archive, sessionID); err != nil {
				s.metrics.ObserveArchiveOp("save", "error")
			} else {
				s.metrics.ObserveArchiveOp("save", "ok")
			}
		}
		s.metrics.SetActiveSessions(s.sessions.ActiveCount())
		s.metrics.ObserveSessionEvent("ended")
		s.writeWS(conn, protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: sessionID,
			Code:      "ended",
		})
		return true
	}
	return false
}

func (s *Server) saveEvent(ctx context.Context, eng *engine.Engine, sessionID string) any {
	if s.archive == nil {
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "archive_disabled",
			Detail:    "no archive configured",
		}
	}
	if err := eng.SaveTo(ctx, s.archive, sessionID); err != nil {
		s.metrics.ObserveArchiveOp("save", "error")
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "save_failed",
			Detail:    err.Error(),
		}
	}
	s.metrics.ObserveArchiveOp("save", "ok")
	return protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: sessionID,
		Code:      "saved",
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	if err := conn.WriteJSON(msg); err != nil {
		return
	}
	switch m := msg.(type) {
	case protocol.AssistantReply:
		s.metrics.ObserveWSMessage("outbound", string(m.Type))
	case protocol.SystemEvent:
		s.metrics.ObserveWSMessage("outbound", string(m.Type))
	case protocol.ErrorEvent:
		s.metrics.ObserveWSMessage("outbound", string(m.Type))
	}
}
