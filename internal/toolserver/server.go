// Package toolserver exposes tool handlers over HTTP for the remote executor:
// POST <prefix>/tools/{name} with the raw argument object as the body.
package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kidslingo/kidslingo/internal/config/gateway"
	"github.com/kidslingo/kidslingo/internal/schema"
)

const maxBodyBytes = 1 << 20

// Catalog is the tool contract the server enforces.
type Catalog interface {
	Name() string
	Get(name string) (schema.ToolSpec, bool)
	List() []schema.ToolSpec
	Validate(name string, args map[string]any) error
}

// Server validates requests against the catalog and dispatches them to exec.
//
// Status codes: 200 success, 400 malformed or schema-invalid arguments,
// 401 bad code, 404 unknown tool, 422 the handler rejected the call,
// 429 rate limited, 502 the executor failed.
type Server struct {
	cfg     gateway.ToolServerConfig
	catalog Catalog
	exec    schema.Executor
	limiter *ipLimiter
}

// New creates a Server.
func New(cfg gateway.ToolServerConfig, catalog Catalog, exec schema.Executor) *Server {
	return &Server{
		cfg:     cfg,
		catalog: catalog,
		exec:    exec,
		limiter: newIPLimiter(cfg.RatePerSecond, cfg.Burst),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	prefix := strings.TrimRight(s.cfg.Prefix, "/")
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+prefix+"/tools/{name}", s.handleTool)
	mux.HandleFunc("GET "+prefix+"/tools", s.handleList)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "contract": s.catalog.Name()})
	})
	return s.limiter.middleware(mux)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Tool server listening", "addr", addr, "prefix", s.cfg.Prefix, "contract", s.catalog.Name())
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

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	specs := s.catalog.List()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"contract": s.catalog.Name(), "tools": names})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	start := time.Now()

	if s.cfg.Code != "" && r.URL.Query().Get("code") != s.cfg.Code && r.Header.Get("x-functions-key") != s.cfg.Code {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, ok := s.catalog.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown tool "+name)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	args := map[string]any{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			writeError(w, http.StatusBadRequest, "body must be a JSON object: "+err.Error())
			return
		}
	}
	if err := s.catalog.Validate(name, args); err != nil {
		writeError(w, http.StatusBadRequest, "invalid arguments: "+err.Error())
		return
	}

	result, err := s.exec.Execute(r.Context(), name, args)
	if err != nil {
		slog.Error("Tool execution failed", "name", name, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	status := http.StatusOK
	if result.IsError() {
		status = http.StatusUnprocessableEntity
	}
	slog.Info("Tool served", "name", name, "status", status, "elapsed", time.Since(start).Round(time.Millisecond))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, result.Content())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
