package config

import (
	"strings"

	"github.com/kidslingo/kidslingo/internal/config/provider"
	"github.com/kidslingo/kidslingo/internal/config/tool"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays the deployment environment variables on cfg. Unset or
// empty variables leave the file value untouched.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	setStr := func(dst *string, key string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	if v, ok := get("AZURE_OPENAI_ENDPOINT"); ok {
		cfg.Providers.Azure.APIBase = v
		cfg.Agents.Defaults.Provider = provider.ProviderAzure
	}
	setStr(&cfg.Providers.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	setStr(&cfg.Providers.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")
	setStr(&cfg.Agents.Defaults.Model, "AZURE_OPENAI_DEPLOYMENT")
	setStr(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")

	if v, ok := get("AOAI_DISABLE_TOOLS"); ok {
		cfg.Agents.Defaults.DisableTools = truthy(v)
	}
	if v, ok := get("USE_FUNCTION_TOOLS"); ok {
		if truthy(v) {
			cfg.Tools.Contract = "learning"
			cfg.Tools.Backend = tool.BackendRemote
		} else {
			cfg.Tools.Contract = "basic"
			cfg.Tools.Backend = tool.BackendLocal
		}
	}
	setStr(&cfg.Tools.Remote.BaseURL, "TOOLS_BASE_URL")
	setStr(&cfg.Tools.Remote.Code, "FUNCTIONS_CODE")

	setStr(&cfg.Tools.YouTube.APIKey, "YOUTUBE_API_KEY")
	setStr(&cfg.Tools.Maps.APIKey, "AZURE_MAPS_KEY")
	setStr(&cfg.Tools.Speech.Region, "AZURE_SPEECH_REGION")
	setStr(&cfg.Tools.Speech.APIKey, "AZURE_SPEECH_KEY")
	setStr(&cfg.Tools.Search.Endpoint, "AZURE_SEARCH_ENDPOINT")
	setStr(&cfg.Tools.Search.APIKey, "AZURE_SEARCH_API_KEY")
	setStr(&cfg.Tools.Search.Index, "AZURE_SEARCH_INDEX")
	setStr(&cfg.Tools.Search.APIVersion, "AZURE_SEARCH_API_VERSION")
	setStr(&cfg.Tools.AgeRules, "AGE_RECO_RULES")

	setStr(&cfg.Store.Path, "KIDSLINGO_STORE_PATH")
	setStr(&cfg.Logger.Level, "KIDSLINGO_LOG_LEVEL")
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
