package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidslingo/kidslingo/internal/agent"
	"github.com/kidslingo/kidslingo/internal/config/gateway"
	"github.com/kidslingo/kidslingo/internal/schema"
)

type fakeRunner struct {
	mu    sync.Mutex
	err   error
	seen  [][]schema.Message
	reply func(history []schema.Message) string
}

func (f *fakeRunner) Run(_ context.Context, history []schema.Message) (agent.TurnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, history)
	if f.err != nil {
		return agent.TurnResult{}, f.err
	}
	content := "ok"
	if f.reply != nil {
		content = f.reply(history)
	}
	msgs := append(append([]schema.Message{}, history...), schema.NewAssistantMessage(content, nil))
	return agent.TurnResult{TurnID: "turn-1", Content: content, Messages: msgs}, nil
}

func newServer(t *testing.T, r Runner) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(gateway.DefaultGatewayConfig(), r).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestTurn_Success(t *testing.T) {
	runner := &fakeRunner{reply: func(h []schema.Message) string { return "echo: " + h[len(h)-1].Content }}
	srv := newServer(t, runner)

	resp, err := http.Post(srv.URL+"/v1/turn", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hello"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out TurnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "echo: hello", out.Content)
	assert.Equal(t, "turn-1", out.TurnID)
	assert.Len(t, out.Messages, 2)
}

func TestTurn_BadRequests(t *testing.T) {
	srv := newServer(t, &fakeRunner{})
	for _, body := range []string{`not json`, `{"messages":[]}`} {
		resp, err := http.Post(srv.URL+"/v1/turn", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestTurn_TurnErrorIs502WithStage(t *testing.T) {
	runner := &fakeRunner{err: &agent.TurnError{Stage: agent.StageTool, Tool: "index_video", Err: errors.New("tool router failed")}}
	srv := newServer(t, runner)

	resp, err := http.Post(srv.URL+"/v1/turn", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "tool", out.Stage)
	assert.Equal(t, "tool router failed", out.Error)
}

func TestWS_KeepsHistoryAcrossTurns(t *testing.T) {
	runner := &fakeRunner{reply: func(h []schema.Message) string { return strings.ToUpper(h[len(h)-1].Content) }}
	srv := newServer(t, runner)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, msg := range []string{"hi", "again"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		var reply wsReply
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, strings.ToUpper(msg), reply.Content)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.seen, 2)
	second := runner.seen[1]
	require.Len(t, second, 3)
	assert.Equal(t, "hi", second[0].Content)
	assert.Equal(t, schema.RoleAssistant, second[1].Role)
	assert.Equal(t, "again", second[2].Content)
}

func TestWS_ErrorFrame(t *testing.T) {
	runner := &fakeRunner{err: &agent.TurnError{Stage: agent.StageCompletion, Err: errors.New("HTTP 500")}}
	srv := newServer(t, runner)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "completion", reply.Stage)
	assert.Equal(t, "HTTP 500", reply.Error)
}
