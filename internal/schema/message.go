package schema

import (
	"encoding/json"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents one function call in an assistant message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToWireMap serialises a ToolCall into the OpenAI wire-format map.
// Used by provider implementations when building the JSON request body.
func (tc ToolCall) ToWireMap() map[string]any {
	args := tc.Arguments
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, _ := json.Marshal(args)
	return map[string]any{
		"id":   tc.ID,
		"type": "function",
		"function": map[string]any{
			"name":      tc.Name,
			"arguments": string(argsJSON),
		},
	}
}

// MarshalJSON encodes the call in the OpenAI wire format so stored and
// transmitted histories can be replayed to the provider unchanged.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(tc.ToWireMap())
}

// UnmarshalJSON accepts the OpenAI wire format. Arguments may be either the
// serialised JSON string the provider emits or an inline object.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       string `json:"id"`
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	args := map[string]any{}
	raw := wire.Function.Arguments
	if len(raw) > 0 && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			raw = json.RawMessage(s)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return fmt.Errorf("tool call %s arguments: %w", wire.ID, err)
			}
		}
	}

	tc.ID = wire.ID
	tc.Name = wire.Function.Name
	tc.Arguments = args
	return nil
}

// Message is one entry in the conversation history.
//
// Role is one of: "system", "user", "assistant", "tool".
// Content may be empty on assistant messages that only carry tool calls.
// ToolCalls is populated for assistant messages that invoke tools.
// ToolCallID and ToolName are set for tool-result messages.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // "tool" role only
	ToolName   string     `json:"name,omitempty"`         // "tool" role only
}

func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
	}
}

func NewAssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	}
}

func NewToolResultMessage(toolCallID, toolName, result string) Message {
	return Message{
		Role:       RoleTool,
		Content:    result,
		ToolCallID: toolCallID,
		ToolName:   toolName,
	}
}
