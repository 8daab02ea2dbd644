package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidslingo/kidslingo/internal/schema"
)

const toolCallResponse = `{
  "choices": [{
    "message": {
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "search_youtube_videos", "arguments": "{\"age\":7,\"cefr\":\"A1\"}"}
      }]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

type capturedRequest struct {
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func newCompletionServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func sampleMessages() schema.Messages {
	msgs := schema.NewMessages()
	msgs.AddSystem("You are a tutor.")
	msgs.AddUser("Find Bluey videos")
	return msgs
}

func sampleTools() []map[string]any {
	return []map[string]any{{
		"type":     "function",
		"function": map[string]any{"name": "search_youtube_videos", "parameters": map[string]any{"type": "object"}},
	}}
}

func TestChat_OpenAICompatible(t *testing.T) {
	srv, got := newCompletionServer(t, http.StatusOK, toolCallResponse)

	p := NewOpenAIProvider(Params{APIKey: "sk-test", APIBase: srv.URL, DefaultModel: "gpt-4o-mini", ProviderName: "openai"})
	resp, err := p.Chat(context.Background(), sampleMessages(), sampleTools(),
		schema.NewChatOptions("", 0, 0.2, "auto"))
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-test", got.header.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", got.body["model"])
	assert.Equal(t, "auto", got.body["tool_choice"])
	assert.InDelta(t, 0.2, got.body["temperature"], 1e-9)
	assert.NotContains(t, got.body, "max_tokens")

	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "search_youtube_videos", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"age": float64(7), "cefr": "A1"}, resp.ToolCalls[0].Arguments)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestChat_Azure(t *testing.T) {
	srv, got := newCompletionServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"안녕!"},"finish_reason":"stop"}]}`)

	p := NewOpenAIProvider(Params{
		APIKey:       "azure-key",
		APIBase:      srv.URL + "/",
		APIVersion:   "2024-06-01",
		DefaultModel: "gpt-4o-kids",
		ProviderName: "azure",
	})
	resp, err := p.Chat(context.Background(), sampleMessages(), nil, schema.ChatOptions{})
	require.NoError(t, err)

	assert.Equal(t, "/openai/deployments/gpt-4o-kids/chat/completions", got.path)
	assert.Equal(t, "api-version=2024-06-01", got.query)
	assert.Equal(t, "azure-key", got.header.Get("api-key"))
	assert.Empty(t, got.header.Get("Authorization"))
	assert.NotContains(t, got.body, "model")
	assert.NotContains(t, got.body, "tools")
	assert.NotContains(t, got.body, "tool_choice")
	assert.Equal(t, "안녕!", resp.Content)
	assert.False(t, resp.HasToolCalls())
}

func TestChat_NonOKStatus(t *testing.T) {
	srv, _ := newCompletionServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)

	p := NewOpenAIProvider(Params{APIBase: srv.URL, DefaultModel: "gpt-4o"})
	_, err := p.Chat(context.Background(), sampleMessages(), nil, schema.ChatOptions{})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Contains(t, pe.Body, "bad key")
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestChat_RateLimited(t *testing.T) {
	srv, _ := newCompletionServer(t, http.StatusTooManyRequests, `slow down`)

	p := NewOpenAIProvider(Params{APIBase: srv.URL, DefaultModel: "gpt-4o"})
	_, err := p.Chat(context.Background(), sampleMessages(), nil, schema.ChatOptions{})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "rate limit exceeded", pe.Body)
}

func TestChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p := NewOpenAIProvider(Params{APIBase: base, DefaultModel: "gpt-4o"})
	_, err := p.Chat(context.Background(), sampleMessages(), nil, schema.ChatOptions{})
	require.Error(t, err)
}

func TestChat_ModelOverride(t *testing.T) {
	srv, got := newCompletionServer(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`)

	p := NewOpenAIProvider(Params{APIBase: srv.URL, DefaultModel: "gpt-5-mini", ProviderName: "openai"})
	resp, err := p.Chat(context.Background(), sampleMessages(), nil, schema.ChatOptions{Temperature: 0.2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.body["temperature"], 1e-9)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestMessageToWireMap(t *testing.T) {
	call := schema.ToolCall{ID: "c1", Name: "say_word", Arguments: map[string]any{"word": "apple"}}

	assistant := messageToWireMap(schema.NewAssistantMessage("", []schema.ToolCall{call}))
	assert.Nil(t, assistant["content"])
	calls := assistant["tool_calls"].([]map[string]any)
	require.Len(t, calls, 1)
	assert.Equal(t, `{"word":"apple"}`, calls[0]["function"].(map[string]any)["arguments"])

	tool := messageToWireMap(schema.NewToolResultMessage("c1", "say_word", `{"audio":null}`))
	assert.Equal(t, "c1", tool["tool_call_id"])
	assert.Equal(t, "say_word", tool["name"])
	assert.Equal(t, `{"audio":null}`, tool["content"])

	user := messageToWireMap(schema.NewUserMessage("hi"))
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, user)
}

func TestParseOpenAIResponse_ContentParts(t *testing.T) {
	resp, err := parseOpenAIResponse([]byte(
		`{"choices":[{"message":{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Content)
}

func TestParseOpenAIResponse_Errors(t *testing.T) {
	_, err := parseOpenAIResponse([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseOpenAIResponse([]byte(`{"choices":[]}`))
	assert.EqualError(t, err, "empty choices in response")
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
		err  bool
	}{
		{"empty", "", map[string]any{}, false},
		{"valid", `{"a":1}`, map[string]any{"a": float64(1)}, false},
		{"null", `null`, map[string]any{}, false},
		{"truncated", `{"word":"cat"`, map[string]any{"word": "cat"}, false},
		{"trailing garbage", `{"a":1} extra`, map[string]any{"a": float64(1)}, false},
		{"hopeless", `[[[`, map[string]any{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repairJSON(tt.in)
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		base     string
		model    string
		want     string
	}{
		{"standard prefix", "deepseek", "", "deepseek/deepseek-chat", "deepseek-chat"},
		{"bare model", "openai", "", "gpt-4o", "gpt-4o"},
		{"gateway keeps vendor", "openrouter", "", "openrouter/openai/gpt-4o", "openai/gpt-4o"},
		{"local strips own prefix", "ollama", "", "ollama/llama3.1", "llama3.1"},
		{"azure by base", "", "https://kids.openai.azure.com", "gpt-4o-kids", "gpt-4o-kids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewOpenAIProvider(Params{ProviderName: tt.provider, APIBase: tt.base, DefaultModel: tt.model})
			assert.Equal(t, tt.want, p.resolveModel(tt.model))
		})
	}
}

func TestDefaultAPIBase(t *testing.T) {
	assert.Equal(t, "https://openrouter.ai/api/v1",
		NewOpenAIProvider(Params{APIKey: "sk-or-abc", DefaultModel: "x"}).apiBase)
	assert.Equal(t, "https://api.openai.com/v1",
		NewOpenAIProvider(Params{DefaultModel: "mystery"}).apiBase)
	assert.True(t, NewOpenAIProvider(Params{APIBase: "https://kids.openai.azure.com"}).isAzure())
}
