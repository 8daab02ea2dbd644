package config

import (
	"strings"

	"github.com/kidslingo/kidslingo/internal/config/provider"
	"github.com/kidslingo/kidslingo/internal/providers"
)

// MatchResult is the resolved LLM provider config and registry name for a model.
type MatchResult struct {
	Provider *provider.ProviderConfig
	Name     string // e.g. "azure", "openrouter"
}

// MatchProvider resolves which provider config and registry entry to use for model.
// If model is empty, the default model from agents.defaults.model is used.
//
// Priority order:
//  1. agents.defaults.provider, when set
//  2. Explicit provider prefix in model string (e.g. "deepseek/deepseek-chat" → deepseek)
//  3. Keyword match in model name (registry order)
//  4. Fallback: first configured provider in registry order
func (c *Config) MatchProvider(model string) MatchResult {
	if name := strings.ToLower(c.Agents.Defaults.Provider); name != "" {
		if p := c.ProviderByName(name); p != nil {
			return MatchResult{Provider: p, Name: name}
		}
	}

	if model == "" {
		model = c.Agents.Defaults.Model
	}
	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, _ := strings.Cut(modelLower, "/")
	normalizedPrefix := strings.ReplaceAll(modelPrefix, "-", "_")

	kwMatches := func(kw string) bool {
		kw = strings.ToLower(kw)
		kwNorm := strings.ReplaceAll(kw, "-", "_")
		return strings.Contains(modelLower, kw) || strings.Contains(modelNorm, kwNorm)
	}

	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		if modelPrefix != "" && normalizedPrefix == spec.Name && p.Configured(spec.IsLocal) {
			return MatchResult{Provider: p, Name: spec.Name}
		}
	}

	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p == nil || !p.Configured(spec.IsLocal) {
			continue
		}
		for _, kw := range spec.Keywords {
			if kwMatches(kw) {
				return MatchResult{Provider: p, Name: spec.Name}
			}
		}
	}

	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p != nil && p.Configured(spec.IsLocal) {
			return MatchResult{Provider: p, Name: spec.Name}
		}
	}

	return MatchResult{}
}

// GetProviderName returns the registry name of the matched provider (or "").
func (c *Config) GetProviderName(model string) string {
	return c.MatchProvider(model).Name
}

// GetAPIBase resolves the effective API base URL for model.
// Precedence: user-configured apiBase > registry default.
func (c *Config) GetAPIBase(model string) string {
	result := c.MatchProvider(model)
	if result.Provider != nil && result.Provider.APIBase != "" {
		return result.Provider.APIBase
	}
	if result.Name != "" {
		if spec := providers.FindByName(result.Name); spec != nil {
			return spec.DefaultAPIBase
		}
	}
	return ""
}

// GetAPIKey returns the API key for model (or "").
func (c *Config) GetAPIKey(model string) string {
	if p := c.MatchProvider(model).Provider; p != nil {
		return p.APIKey
	}
	return ""
}
