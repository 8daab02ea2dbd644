// Package schema contains the core contracts shared across kidslingo packages:
// conversation messages, the LLM provider boundary, tool descriptors and the
// tool executor capability. Concrete implementations live in their respective
// packages.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// ToolSpec is the static descriptor of one callable tool.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is the JSON Schema (as raw JSON bytes) for the tool's arguments.
	Parameters json.RawMessage
}

// Definition returns the tool in OpenAI function-calling format.
func (s ToolSpec) Definition() map[string]any {
	var params any
	if err := json.Unmarshal(s.Parameters, &params); err != nil || params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	fn := map[string]any{
		"name":       s.Name,
		"parameters": params,
	}
	if s.Description != "" {
		fn["description"] = s.Description
	}
	return map[string]any{
		"type":     "function",
		"function": fn,
	}
}

// Contract is the declared, read-only set of tools presented to the provider.
type Contract interface {
	// Name identifies the contract (e.g. "learning").
	Name() string
	// List returns the tools in declaration order.
	List() []ToolSpec
	// Get resolves a tool name to its descriptor.
	Get(name string) (ToolSpec, bool)
	// Definitions returns List in OpenAI function-calling format.
	Definitions() []map[string]any
}

// ToolResult is the uniform executor output: either an opaque success payload
// or an error reason. The orchestration loop never looks inside Payload.
type ToolResult struct {
	Payload any
	Err     string
}

// OK wraps a success payload.
func OK(payload any) ToolResult { return ToolResult{Payload: payload} }

// Failure builds an error result.
func Failure(format string, args ...any) ToolResult {
	return ToolResult{Err: fmt.Sprintf(format, args...)}
}

// IsError reports whether the result is an error descriptor.
func (r ToolResult) IsError() bool { return r.Err != "" }

// Content serialises the result into tool-message content. Error results
// become {"error": reason}; raw JSON payloads are passed through untouched.
func (r ToolResult) Content() string {
	if r.IsError() {
		return encodeJSON(map[string]string{"error": r.Err})
	}
	if raw, ok := r.Payload.(json.RawMessage); ok && json.Valid(raw) {
		return string(raw)
	}
	return encodeJSON(r.Payload)
}

func encodeJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // keep non-ASCII and markup readable for the model
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf(`{"error":%q}`, "encode result: "+err.Error())
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Executor resolves a tool name and argument object to a result.
//
// Recoverable failures (unknown tool, handler errors, backend-reported
// argument errors) are returned as error ToolResults with a nil error.
// A non-nil error signals a transport fault the caller must see.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) (ToolResult, error)
}
