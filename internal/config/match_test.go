package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchProvider_ExplicitName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents.Defaults.Provider = "azure"
	cfg.Providers.Azure.APIBase = "https://kids.openai.azure.com"

	m := cfg.MatchProvider("")
	assert.Equal(t, "azure", m.Name)
	assert.Equal(t, "https://kids.openai.azure.com", cfg.GetAPIBase(""))
}

func TestMatchProvider_Prefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.DeepSeek.APIKey = "ds"
	cfg.Providers.OpenAI.APIKey = "oa"

	assert.Equal(t, "deepseek", cfg.GetProviderName("deepseek/deepseek-chat"))
	assert.Equal(t, "ds", cfg.GetAPIKey("deepseek/deepseek-chat"))
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.GetAPIBase("deepseek/deepseek-chat"))
}

func TestMatchProvider_Keyword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.OpenAI.APIKey = "oa"
	cfg.Providers.Groq.APIKey = "gq"

	assert.Equal(t, "openai", cfg.GetProviderName("gpt-4o-mini"))
}

func TestMatchProvider_FallbackAndLocal(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, MatchResult{}, cfg.MatchProvider("llama3.1"))

	cfg.Providers.Ollama.APIBase = "http://localhost:11434/v1"
	assert.Equal(t, "ollama", cfg.GetProviderName("llama3.1"))
	assert.Equal(t, "", cfg.GetAPIKey("llama3.1"))
}
