package providers

import (
	"time"

	"github.com/kidslingo/kidslingo/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string // Azure: resource endpoint
	APIVersion   string // Azure only
	ExtraHeaders map[string]string
	DefaultModel string // Azure: deployment name
	ProviderName string // registry name, e.g. "azure", "openrouter"
	Timeout      time.Duration
	Breaker      *BreakerConfig // nil disables the circuit breaker
}

// New creates the schema.LLMProvider for the given params, wrapped in a
// circuit breaker when one is configured.
func New(p Params) schema.LLMProvider {
	var provider schema.LLMProvider = NewOpenAIProvider(p)
	if p.Breaker != nil {
		provider = NewCircuitBreakerProvider(provider, *p.Breaker)
	}
	return provider
}
