package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/audit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"required,max=8000"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type      string           `json:"type"` // "reply" or "error"
	SessionID string           `json:"session_id,omitempty"`
	Error     string           `json:"error,omitempty"`
	Reply     *messageResponse `json:"reply,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if isDecodeError(err) {
				s.send(conn, wsResponse{Type: "error", Error: "invalid message format"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		req.Message = strings.TrimSpace(req.Message)
		if err := s.validate.Struct(req); err != nil {
			s.send(conn, wsResponse{Type: "error", SessionID: req.SessionID, Error: err.Error()})
			continue
		}

		s.handleWSMessage(r.Context(), conn, req)
	}
}

func (s *Server) handleWSMessage(ctx context.Context, conn *websocket.Conn, req wsRequest) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		sess, err := s.sessions.CreateSession(ctx, "")
		if err != nil {
			s.send(conn, wsResponse{Type: "error", Error: "failed to create session: " + err.Error()})
			return
		}
		sessionID = sess.ID
		s.record(ctx, audit.ActionSessionCreated, sessionID, sess.Title, "websocket")
	}

	resp, err := s.chat(ctx, sessionID, req.Message)
	if err != nil {
		s.send(conn, wsResponse{Type: "error", SessionID: sessionID, Error: err.Error()})
		return
	}
	s.send(conn, wsResponse{Type: "reply", SessionID: sessionID, Reply: resp})
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (s *Server) send(conn *websocket.Conn, resp wsResponse) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(resp); err != nil {
		log.Warn().Err(err).Msg("websocket write failed")
	}
}
