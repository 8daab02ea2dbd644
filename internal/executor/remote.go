package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/shared/llmutils"
)

// DefaultPathTemplates are tried in order for every call. The backend may be
// mounted with or without an "/api" route prefix.
var DefaultPathTemplates = []string{"/tools/{name}", "/api/tools/{name}"}

const snippetLen = 200

// TransportError reports that no candidate URL produced a usable response.
// It is fatal to the turn: it signals a configuration or availability
// problem rather than a bad tool call.
type TransportError struct {
	Tool   string
	Detail string // last HTTP status + body snippet, or transport error text
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tool router failed for %s: %s", e.Tool, e.Detail)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteConfig configures the HTTP tool backend.
type RemoteConfig struct {
	BaseURL       string
	PathTemplates []string      // defaults to DefaultPathTemplates
	Code          string        // optional shared secret sent as ?code=
	Timeout       time.Duration // per HTTP attempt; defaults to 30s
}

// Remote posts tool arguments to an HTTP backend.
type Remote struct {
	baseURL    string
	templates  []string
	code       string
	httpClient *http.Client
}

// NewRemote creates a Remote executor.
func NewRemote(cfg RemoteConfig) *Remote {
	templates := cfg.PathTemplates
	if len(templates) == 0 {
		templates = DefaultPathTemplates
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		templates:  append([]string(nil), templates...),
		code:       cfg.Code,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// candidateURLs expands every path template for name, in order.
func (r *Remote) candidateURLs(name string) []string {
	out := make([]string, 0, len(r.templates))
	for _, tmpl := range r.templates {
		u := r.baseURL + strings.ReplaceAll(tmpl, "{name}", url.PathEscape(name))
		if r.code != "" {
			sep := "?"
			if strings.Contains(u, "?") {
				sep = "&"
			}
			u += sep + url.Values{"code": {r.code}}.Encode()
		}
		out = append(out, u)
	}
	return out
}

// Execute implements schema.Executor.
//
// The first candidate answering 2xx wins. 400/422 responses with a JSON
// object body are the backend's own verdict on the arguments and are passed
// through as the result. Anything else moves on to the next candidate; when
// none is left a *TransportError is returned.
func (r *Remote) Execute(ctx context.Context, name string, args map[string]any) (schema.ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return schema.Failure("encode arguments for %s: %v", name, err), nil
	}

	var lastErr string
	var lastCause error
	for _, u := range r.candidateURLs(name) {
		status, raw, err := r.post(ctx, u, body)
		if err != nil {
			lastErr, lastCause = err.Error(), err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if !json.Valid(raw) {
				lastErr, lastCause = fmt.Sprintf("%d invalid JSON: %s", status, llmutils.Truncate(string(raw), snippetLen)), nil
				continue
			}
			slog.Debug("Tool backend answered", "tool", name, "status", status, "url", redact(u))
			return schema.OK(json.RawMessage(raw)), nil
		case (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity) && isJSONObject(raw):
			slog.Debug("Tool backend rejected arguments", "tool", name, "status", status)
			return schema.OK(json.RawMessage(raw)), nil
		default:
			lastErr, lastCause = fmt.Sprintf("%d %s", status, llmutils.Truncate(strings.TrimSpace(string(raw)), snippetLen)), nil
		}
	}

	return schema.ToolResult{}, &TransportError{Tool: name, Detail: lastErr, Err: lastCause}
}

func (r *Remote) post(ctx context.Context, u string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func isJSONObject(raw []byte) bool {
	var obj map[string]any
	return json.Unmarshal(raw, &obj) == nil
}

// redact hides the shared secret in logged URLs.
func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	if q.Has("code") {
		q.Set("code", "***")
		parsed.RawQuery = q.Encode()
	}
	return parsed.String()
}

var _ schema.Executor = (*Remote)(nil)
