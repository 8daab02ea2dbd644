package agent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/kidslingo/kidslingo/internal/schema"
)

//go:embed prompts/tutor.md
var tutorPrompt string

// PromptContext holds the canonical system instruction for every turn.
// It is resolved once at startup and never changes afterwards.
type PromptContext struct {
	system string
}

// NewPromptContext loads the system instruction from promptFile, or uses the
// built-in tutor prompt when promptFile is empty.
func NewPromptContext(promptFile string) (*PromptContext, error) {
	system := tutorPrompt
	if promptFile != "" {
		data, err := os.ReadFile(expandHome(promptFile))
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		system = string(data)
	}
	system = strings.TrimSpace(system)
	if system == "" {
		return nil, fmt.Errorf("system prompt is empty")
	}
	return &PromptContext{system: system}, nil
}

// SystemPrompt returns the canonical system instruction.
func (pc *PromptContext) SystemPrompt() string { return pc.system }

// Normalize returns a copy of history that starts with exactly one canonical
// system message. The caller's first system message, if any, is replaced;
// later system messages stay where they were. Non-system order is preserved,
// and normalising an already normalised history is a no-op.
func Normalize(history []schema.Message, system string) schema.Messages {
	out := schema.NewMessages()
	out.Messages = make([]schema.Message, 0, len(history)+1)
	out.AddSystem(system)

	replaced := false
	for _, m := range history {
		if m.Role == schema.RoleSystem && !replaced {
			replaced = true
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	return out.Clone()
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + p[1:]
		}
	}
	return p
}
