package schema

import "context"

// AgentSettings are the per-process knobs of the orchestration loop.
type AgentSettings struct {
	Model         string
	MaxToolRounds int
	Temperature   float64
	MaxTokens     int
	ToolChoice    string
	DisableTools  bool   // send no tool definitions to the provider
	EmptyReply    string // returned when the final assistant content is empty
}

func NewAgentSettings(model string, maxToolRounds int, temperature float64, maxTokens int) AgentSettings {
	return AgentSettings{
		Model:         model,
		MaxToolRounds: maxToolRounds,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		ToolChoice:    "auto",
	}
}

// TurnRunner runs one conversation turn to completion.
// Implemented by agent.Orchestrator; consumed by the CLI, the HTTP API and
// the report scheduler.
type TurnRunner interface {
	RunTurn(ctx context.Context, history []Message) (string, error)
}
