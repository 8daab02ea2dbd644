package gateway

// GatewayConfig holds the turn API server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Host: "0.0.0.0", Port: 18790}
}

// ToolServerConfig holds the HTTP tool backend settings.
type ToolServerConfig struct {
	Enabled       bool    `json:"enabled"`
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	Prefix        string  `json:"prefix"` // route prefix, "" or "/api"
	Code          string  `json:"code,omitempty"`
	RatePerSecond float64 `json:"ratePerSecond"` // per client IP; 0 disables
	Burst         int     `json:"burst"`
}

func DefaultToolServerConfig() ToolServerConfig {
	return ToolServerConfig{
		Host:          "0.0.0.0",
		Port:          7071,
		Prefix:        "/api",
		RatePerSecond: 5,
		Burst:         10,
	}
}
