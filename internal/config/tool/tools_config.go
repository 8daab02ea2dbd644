package tool

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// RemoteConfig locates the HTTP tool backend.
type RemoteConfig struct {
	BaseURL       string   `json:"baseUrl"`
	Code          string   `json:"code,omitempty"`
	PathTemplates []string `json:"pathTemplates,omitempty"`
}

// ToolsConfig groups all tool-level settings.
type ToolsConfig struct {
	Contract       string       `json:"contract"` // "learning" or "basic"
	Backend        string       `json:"backend"`  // "local" or "remote"
	TimeoutSeconds int          `json:"timeoutSeconds"`
	Remote         RemoteConfig `json:"remote"`

	YouTube YouTubeConfig `json:"youtube"`
	Maps    MapsConfig    `json:"maps"`
	Speech  SpeechConfig  `json:"speech"`
	Search  SearchConfig  `json:"search"`

	// AgeRules is a JSON object overriding the built-in age buckets.
	AgeRules string `json:"ageRules,omitempty"`
}

func DefaultToolConfigs() ToolsConfig {
	return ToolsConfig{
		Contract:       "learning",
		Backend:        BackendLocal,
		TimeoutSeconds: 30,
		YouTube:        DefaultYouTubeConfig(),
		Speech:         DefaultSpeechConfig(),
		Search:         DefaultSearchConfig(),
	}
}
