package provider

const (
	ProviderAzure      = "azure"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderDeepSeek   = "deepseek"
	ProviderGroq       = "groq"
	ProviderVLLM       = "vllm"
	ProviderOllama     = "ollama"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	APIVersion   string            `json:"apiVersion,omitempty"` // Azure only
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// Configured reports whether the entry can be used. Local servers need only
// a base URL.
func (p ProviderConfig) Configured(local bool) bool {
	if local {
		return p.APIBase != ""
	}
	return p.APIKey != ""
}

// BreakerConfig controls the circuit breaker around the completion endpoint.
type BreakerConfig struct {
	Enabled     bool `json:"enabled"`
	MaxFailures int  `json:"maxFailures"`
	OpenSeconds int  `json:"openSeconds"`
}

// ProvidersConfig holds credentials for all supported LLM providers plus the
// per-call transport settings shared by all of them.
type ProvidersConfig struct {
	Azure      ProviderConfig `json:"azure"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Groq       ProviderConfig `json:"groq"`
	VLLM       ProviderConfig `json:"vllm"`
	Ollama     ProviderConfig `json:"ollama"`

	TimeoutSeconds int           `json:"timeoutSeconds"`
	Breaker        BreakerConfig `json:"breaker"`
}

func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		TimeoutSeconds: 60,
		Breaker:        BreakerConfig{Enabled: true, MaxFailures: 5, OpenSeconds: 30},
	}
}

// ByName returns a pointer to the ProviderConfig field matching the given
// registry name. Returns nil if the name is unknown.
func (p *ProvidersConfig) ByName(name string) *ProviderConfig {
	switch name {
	case ProviderAzure:
		return &p.Azure
	case ProviderOpenAI:
		return &p.OpenAI
	case ProviderOpenRouter:
		return &p.OpenRouter
	case ProviderDeepSeek:
		return &p.DeepSeek
	case ProviderGroq:
		return &p.Groq
	case ProviderVLLM:
		return &p.VLLM
	case ProviderOllama:
		return &p.Ollama
	}
	return nil
}
