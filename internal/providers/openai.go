package providers

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
)

const defaultAzureAPIVersion = "2024-06-01"

// OpenAIProvider makes direct HTTP calls to any OpenAI-compatible
// chat-completions endpoint, including Azure OpenAI deployments.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	apiVersion   string // Azure only
	extraHeaders map[string]string
	gateway      *ProviderSpec // non-nil for gateway/local/azure providers
	spec         *ProviderSpec // non-nil for standard providers
	httpClient   *http.Client
}

// NewOpenAIProvider constructs a provider from raw config values.
// For Azure, apiBase is the resource endpoint and defaultModel the deployment.
func NewOpenAIProvider(p Params) *OpenAIProvider {
	gateway := FindGateway(p.ProviderName, p.APIKey, p.APIBase)

	var spec *ProviderSpec
	if gateway == nil {
		spec = FindByModel(p.DefaultModel)
		if spec == nil {
			spec = FindByName(p.ProviderName)
		}
	}

	effectiveBase := p.APIBase
	if effectiveBase == "" {
		if gateway != nil && gateway.DefaultAPIBase != "" {
			effectiveBase = gateway.DefaultAPIBase
		} else if spec != nil && spec.DefaultAPIBase != "" {
			effectiveBase = spec.DefaultAPIBase
		} else {
			effectiveBase = "https://api.openai.com/v1"
		}
	}
	effectiveBase = strings.TrimRight(effectiveBase, "/")

	apiVersion := p.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIProvider{
		apiKey:       p.APIKey,
		apiBase:      effectiveBase,
		defaultModel: p.DefaultModel,
		apiVersion:   apiVersion,
		extraHeaders: p.ExtraHeaders,
		gateway:      gateway,
		spec:         spec,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) isAzure() bool { return p.gateway != nil && p.gateway.IsAzure }

// Chat implements schema.LLMProvider.
func (p *OpenAIProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	model = p.resolveModel(model)

	body := map[string]any{
		"messages":    sanitizeMessages(messages),
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	if !p.isAzure() {
		body["model"] = model
	}
	if len(tools) > 0 {
		body["tools"] = tools
		choice := opts.ToolChoice
		if choice == "" {
			choice = "auto"
		}
		body["tool_choice"] = choice
	}
	p.applyModelOverrides(model, body)

	data, err := json.Marshal(body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(model), bytes.NewReader(data))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.isAzure() {
		req.Header.Set("api-key", p.apiKey)
	} else if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.LLMResponse{}, &ProviderError{
			StatusCode: resp.StatusCode,
			Body:       friendlyHTTPError(resp.StatusCode, raw),
		}
	}

	return parseOpenAIResponse(raw)
}

// endpoint builds the chat-completions URL for model.
func (p *OpenAIProvider) endpoint(model string) string {
	if p.isAzure() {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s",
			p.apiBase, url.PathEscape(model), url.Values{"api-version": {p.apiVersion}}.Encode())
	}
	return p.apiBase + "/chat/completions"
}

// resolveModel strips routing prefixes from the model string so the provider
// API receives the bare model name it expects. Gateways keep the
// "vendor/model" form they route on and only lose their own prefix.
func (p *OpenAIProvider) resolveModel(model string) string {
	if p.gateway != nil {
		if pfx := p.gateway.ModelPrefix; pfx != "" {
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				model = model[len(full):]
			}
		}
		return model
	}

	if p.spec != nil {
		for _, pfx := range []string{p.spec.ModelPrefix, p.spec.Name} {
			if pfx == "" {
				continue
			}
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				return model[len(full):]
			}
		}
	}
	if strings.Contains(model, "/") {
		parts := strings.SplitN(model, "/", 2)
		if FindByName(parts[0]) != nil {
			return parts[1]
		}
	}
	return model
}

func (p *OpenAIProvider) applyModelOverrides(model string, body map[string]any) {
	modelLower := strings.ToLower(model)
	spec := p.spec
	if spec == nil {
		spec = FindByModel(model)
	}
	if spec == nil {
		return
	}
	for _, ov := range spec.ModelOverrides {
		if strings.Contains(modelLower, strings.ToLower(ov.Pattern)) {
			for k, v := range ov.Overrides {
				body[k] = v
			}
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Message sanitisation
// ---------------------------------------------------------------------------

// messageToWireMap converts a typed Message to the OpenAI wire-format map.
func messageToWireMap(m schema.Message) map[string]any {
	wire := map[string]any{
		"role":    m.Role,
		"content": m.Content,
	}
	switch m.Role {
	case schema.RoleAssistant:
		if len(m.ToolCalls) > 0 {
			// Strict providers want an explicit null next to tool calls.
			if m.Content == "" {
				wire["content"] = nil
			}
			raw := make([]map[string]any, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				raw[i] = tc.ToWireMap()
			}
			wire["tool_calls"] = raw
		}
	case schema.RoleTool:
		wire["tool_call_id"] = m.ToolCallID
		if m.ToolName != "" {
			wire["name"] = m.ToolName
		}
	}
	return wire
}

func sanitizeMessages(messages schema.Messages) []map[string]any {
	out := make([]map[string]any, 0, len(messages.Messages))
	for _, m := range messages.Messages {
		out = append(out, messageToWireMap(m))
	}
	return out
}

// ---------------------------------------------------------------------------
// Response parser
// ---------------------------------------------------------------------------

// openAIRespBody is the subset of the OpenAI chat completion response we care about.
type openAIRespBody struct {
	Choices []struct {
		Message struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseOpenAIResponse(raw []byte) (schema.LLMResponse, error) {
	var body openAIRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, fmt.Errorf("parse OpenAI response: %w", err)
	}
	if len(body.Choices) == 0 {
		return schema.LLMResponse{}, fmt.Errorf("empty choices in response")
	}

	msg := body.Choices[0].Message

	var content string
	switch c := msg.Content.(type) {
	case string:
		content = c
	case []any:
		// Some gateways return content parts.
		var sb strings.Builder
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		content = sb.String()
	}

	var toolCalls []schema.ToolCall
	for _, tc := range msg.ToolCalls {
		args, err := repairJSON(tc.Function.Arguments)
		if err != nil {
			slog.Warn("failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
			args = map[string]any{}
		}
		toolCalls = append(toolCalls, schema.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	usage := schema.Usage{
		PromptTokens:     body.Usage.PromptTokens,
		CompletionTokens: body.Usage.CompletionTokens,
		TotalTokens:      body.Usage.TotalTokens,
	}

	finish := body.Choices[0].FinishReason
	if finish == "" {
		finish = "stop"
	}

	return schema.LLMResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage:        usage,
	}, nil
}

// ---------------------------------------------------------------------------
// JSON repair
// ---------------------------------------------------------------------------

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage characters. This handles some LLMs that emit truncated tool arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	}

	// Attempt 1: trim trailing non-JSON characters.
	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	// Attempt 2: find the last complete JSON object.
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
