package providers

import "strings"

// ModelOverride applies extra parameters for a specific model pattern.
type ModelOverride struct {
	Pattern   string         // case-insensitive substring to match in model name
	Overrides map[string]any // parameters to merge into the request body
}

// ProviderSpec is the metadata record for one chat-completion backend.
// Every entry speaks the OpenAI chat-completions protocol; Azure differs only
// in URL shape and auth header.
type ProviderSpec struct {
	Name        string   // config value, e.g. "azure"
	Keywords    []string // model-name keywords for matching (lowercase)
	EnvKey      string   // env var conventionally holding the API key
	DisplayName string   // shown in `kidslingo status`

	// Model prefix stripped before the request ("deepseek/deepseek-chat").
	ModelPrefix string

	IsAzure             bool   // deployment URL + api-key header
	IsGateway           bool   // routes any model (OpenRouter)
	IsLocal             bool   // local deployment (vLLM, Ollama)
	DetectByKeyPrefix   string // match api_key prefix to identify gateway
	DetectByBaseKeyword string // match substring in api_base URL
	DefaultAPIBase      string // fallback base URL when none is configured

	ModelOverrides []ModelOverride
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// PROVIDERS is the registry. Order = match priority.
var PROVIDERS = []ProviderSpec{
	{
		Name:                "azure",
		Keywords:            nil,
		EnvKey:              "AZURE_OPENAI_API_KEY",
		DisplayName:         "Azure OpenAI",
		IsAzure:             true,
		DetectByBaseKeyword: "openai.azure.com",
	},
	{
		Name:                "openrouter",
		Keywords:            []string{"openrouter"},
		EnvKey:              "OPENROUTER_API_KEY",
		DisplayName:         "OpenRouter",
		ModelPrefix:         "openrouter",
		IsGateway:           true,
		DetectByKeyPrefix:   "sk-or-",
		DetectByBaseKeyword: "openrouter",
		DefaultAPIBase:      "https://openrouter.ai/api/v1",
	},
	{
		Name:           "openai",
		Keywords:       []string{"openai", "gpt"},
		EnvKey:         "OPENAI_API_KEY",
		DisplayName:    "OpenAI",
		DefaultAPIBase: "https://api.openai.com/v1",
		ModelOverrides: []ModelOverride{
			{Pattern: "gpt-5", Overrides: map[string]any{"temperature": 1.0}},
		},
	},
	{
		Name:           "deepseek",
		Keywords:       []string{"deepseek"},
		EnvKey:         "DEEPSEEK_API_KEY",
		DisplayName:    "DeepSeek",
		ModelPrefix:    "deepseek",
		DefaultAPIBase: "https://api.deepseek.com/v1",
	},
	{
		Name:           "groq",
		Keywords:       []string{"groq"},
		EnvKey:         "GROQ_API_KEY",
		DisplayName:    "Groq",
		ModelPrefix:    "groq",
		DefaultAPIBase: "https://api.groq.com/openai/v1",
	},
	{
		Name:        "vllm",
		Keywords:    []string{"vllm"},
		EnvKey:      "HOSTED_VLLM_API_KEY",
		DisplayName: "vLLM/Local",
		ModelPrefix: "hosted_vllm",
		IsLocal:     true,
	},
	{
		Name:                "ollama",
		Keywords:            []string{"ollama"},
		DisplayName:         "Ollama",
		ModelPrefix:         "ollama",
		IsLocal:             true,
		DetectByBaseKeyword: ":11434",
		DefaultAPIBase:      "http://localhost:11434/v1",
	},
}

// FindByModel matches a standard provider by model-name keyword (case-insensitive).
// Skips gateways, local and Azure providers; those are matched by name,
// api_key or api_base.
func FindByModel(model string) *ProviderSpec {
	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, _ := strings.Cut(modelLower, "/")
	normalizedPrefix := strings.ReplaceAll(modelPrefix, "-", "_")

	var std []int
	for i := range PROVIDERS {
		if !PROVIDERS[i].IsGateway && !PROVIDERS[i].IsLocal && !PROVIDERS[i].IsAzure {
			std = append(std, i)
		}
	}

	// Prefer explicit provider prefix.
	for _, i := range std {
		spec := &PROVIDERS[i]
		if modelPrefix != "" && normalizedPrefix == spec.Name {
			return spec
		}
	}

	for _, i := range std {
		spec := &PROVIDERS[i]
		for _, kw := range spec.Keywords {
			kw = strings.ToLower(kw)
			kwNorm := strings.ReplaceAll(kw, "-", "_")
			if strings.Contains(modelLower, kw) || strings.Contains(modelNorm, kwNorm) {
				return spec
			}
		}
	}
	return nil
}

// FindGateway detects a gateway, local or Azure provider.
// Priority: (1) explicit provider name, (2) api_key prefix, (3) api_base keyword.
func FindGateway(providerName, apiKey, apiBase string) *ProviderSpec {
	if providerName != "" {
		if s := FindByName(providerName); s != nil && (s.IsGateway || s.IsLocal || s.IsAzure) {
			return s
		}
	}
	for i := range PROVIDERS {
		spec := &PROVIDERS[i]
		if spec.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, spec.DetectByKeyPrefix) {
			return spec
		}
		if spec.DetectByBaseKeyword != "" && strings.Contains(apiBase, spec.DetectByBaseKeyword) {
			return spec
		}
	}
	return nil
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}
