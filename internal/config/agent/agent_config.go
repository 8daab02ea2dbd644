package agent

// DefaultEmptyReply is returned to the caller when the final assistant
// message carries no text.
const DefaultEmptyReply = "응답이 비었습니다. 설정을 확인하세요."

type AgentDefaults struct {
	Workspace     string  `json:"workspace"`
	Provider      string  `json:"provider,omitempty"` // force a registry entry; empty matches by model
	Model         string  `json:"model"`              // Azure: deployment name
	MaxTokens     int     `json:"maxTokens"`          // 0 leaves the limit to the provider
	Temperature   float64 `json:"temperature"`
	MaxToolRounds int     `json:"maxToolRounds"`
	ToolChoice    string  `json:"toolChoice"`
	DisableTools  bool    `json:"disableTools"`
	EmptyReply    string  `json:"emptyReply"`
	PromptFile    string  `json:"promptFile,omitempty"` // replaces the built-in tutor prompt
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Workspace:     "~/.kidslingo/workspace",
		Model:         "gpt-4o-mini",
		Temperature:   0.2,
		MaxToolRounds: 6,
		ToolChoice:    "auto",
		EmptyReply:    DefaultEmptyReply,
	}
}

func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{Defaults: defaultAgentDefaults()}
}
