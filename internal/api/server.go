// Package api serves tutoring turns to callers over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kidslingo/kidslingo/internal/agent"
	"github.com/kidslingo/kidslingo/internal/config/gateway"
	"github.com/kidslingo/kidslingo/internal/schema"
)

const maxRequestBytes = 4 << 20

// Runner runs one turn. *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, history []schema.Message) (agent.TurnResult, error)
}

// TurnRequest is the POST /v1/turn body.
type TurnRequest struct {
	Messages []schema.Message `json:"messages"`
}

// TurnResponse is a successful turn.
type TurnResponse struct {
	TurnID    string           `json:"turnId"`
	Content   string           `json:"content"`
	Messages  []schema.Message `json:"messages,omitempty"`
	Rounds    int              `json:"rounds"`
	ToolsUsed []string         `json:"toolsUsed,omitempty"`
}

// ErrorResponse reports a failed turn. Stage is empty for request errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Server is the turn API.
type Server struct {
	cfg      gateway.GatewayConfig
	runner   Runner
	upgrader websocket.Upgrader
}

func New(cfg gateway.GatewayConfig, runner Runner) *Server {
	return &Server{
		cfg:    cfg,
		runner: runner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/turn", s.handleTurn)
	mux.HandleFunc("GET /v1/ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Turn API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "messages must not be empty"})
		return
	}

	res, err := s.runner.Run(r.Context(), req.Messages)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, TurnResponse{
		TurnID:    res.TurnID,
		Content:   res.Content,
		Messages:  res.Messages,
		Rounds:    res.Rounds,
		ToolsUsed: res.ToolsUsed,
	})
}

func errorResponse(err error) ErrorResponse {
	var te *agent.TurnError
	if errors.As(err, &te) {
		msg := te.Error()
		if te.Err != nil {
			msg = te.Err.Error()
		}
		return ErrorResponse{Error: msg, Stage: string(te.Stage)}
	}
	return ErrorResponse{Error: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
