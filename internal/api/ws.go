package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/kidslingo/kidslingo/internal/schema"
)

// wsReply is one server frame: the turn content or an error.
type wsReply struct {
	TurnID  string `json:"turnId,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// handleWS keeps one conversation per connection. Every text frame is a user
// message; the server answers each with one JSON frame. Turns on the same
// connection run one at a time.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	var history []schema.Message
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("WebSocket read failed", "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		turn := append(history, schema.NewUserMessage(text))
		res, err := s.runner.Run(r.Context(), turn)

		var reply wsReply
		if err != nil {
			e := errorResponse(err)
			reply = wsReply{Error: e.Error, Stage: e.Stage}
		} else {
			history = res.Messages
			reply = wsReply{TurnID: res.TurnID, Content: res.Content}
		}
		if err := conn.WriteJSON(reply); err != nil {
			slog.Warn("WebSocket write failed", "err", err)
			return
		}
	}
}
