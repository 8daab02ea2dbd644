package tool

// YouTubeConfig configures the YouTube Data API used for video search.
type YouTubeConfig struct {
	APIKey            string   `json:"apiKey"`
	PreferredChannels []string `json:"preferredChannels"`
}

func DefaultYouTubeConfig() YouTubeConfig {
	return YouTubeConfig{
		PreferredChannels: []string{
			"Super Simple Songs", "Cocomelon", "Peppa Pig - Official Channel",
			"Bluey - Official Channel", "Pinkfong", "Maple Leaf Learning",
		},
	}
}

// MapsConfig configures Azure Maps search for local academies.
type MapsConfig struct {
	APIKey string `json:"apiKey"`
}

// SpeechConfig configures Azure text-to-speech.
type SpeechConfig struct {
	Region string `json:"region"`
	APIKey string `json:"apiKey"`
	Voice  string `json:"voice"`
}

func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{Voice: "en-US-AvaNeural"}
}

// SearchConfig configures Azure AI Search.
type SearchConfig struct {
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"apiKey"`
	Index      string `json:"index"`
	APIVersion string `json:"apiVersion"`
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{APIVersion: "2023-11-01"}
}
