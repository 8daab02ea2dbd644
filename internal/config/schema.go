// Package config defines the configuration schema for kidslingo.
//
// The file lives at ~/.kidslingo/config.json and uses camelCase keys.
// Environment variables from the Azure deployment are layered on top by
// ApplyEnv.
package config

import (
	"os"
	"path/filepath"

	"github.com/kidslingo/kidslingo/internal/config/agent"
	"github.com/kidslingo/kidslingo/internal/config/gateway"
	"github.com/kidslingo/kidslingo/internal/config/provider"
	"github.com/kidslingo/kidslingo/internal/config/tool"
)

// StoreConfig locates the sqlite document store. An empty path disables
// persistence; profile and progress tools then answer "store_not_configured".
type StoreConfig struct {
	Path string `json:"path"`
}

// LoggerConfig configures the process-wide slog handler.
type LoggerConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
	Output string `json:"output"` // stderr, stdout or a file path
}

// TracerConfig configures OpenTelemetry tracing.
type TracerConfig struct {
	Enabled  bool   `json:"enabled"`
	Exporter string `json:"exporter"` // stdout or noop
}

// ReportsConfig schedules parent-report turns.
type ReportsConfig struct {
	Enabled  bool     `json:"enabled"`
	Schedule string   `json:"schedule"` // cron expression
	ChildIDs []string `json:"childIds"`
	Period   string   `json:"period"` // 7d, 30d or 90d
}

// Config is the root configuration object.
type Config struct {
	Agents     agent.AgentsConfig       `json:"agents"`
	Providers  provider.ProvidersConfig `json:"providers"`
	Gateway    gateway.GatewayConfig    `json:"gateway"`
	ToolServer gateway.ToolServerConfig `json:"toolServer"`
	Tools      tool.ToolsConfig         `json:"tools"`
	Store      StoreConfig              `json:"store"`
	Logger     LoggerConfig             `json:"logger"`
	Tracer     TracerConfig             `json:"tracer"`
	Reports    ReportsConfig            `json:"reports"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:     agent.DefaultAgentsConfig(),
		Providers:  provider.DefaultProvidersConfig(),
		Gateway:    gateway.DefaultGatewayConfig(),
		ToolServer: gateway.DefaultToolServerConfig(),
		Tools:      tool.DefaultToolConfigs(),
		Store:      StoreConfig{Path: "~/.kidslingo/kidslingo.db"},
		Logger:     LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer:     TracerConfig{Exporter: "noop"},
		Reports: ReportsConfig{
			Schedule: "0 19 * * 0",
			ChildIDs: []string{},
			Period:   "7d",
		},
	}
}

// WorkspacePath returns the expanded absolute path to the agent workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agents.Defaults.Workspace
	if ws == "" {
		ws = "~/.kidslingo/workspace"
	}
	return expandHome(ws)
}

// StorePath returns the expanded sqlite path, or "" when persistence is off.
func (c *Config) StorePath() string {
	if c.Store.Path == "" {
		return ""
	}
	return expandHome(c.Store.Path)
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}

// ProviderByName returns a pointer to the ProviderConfig field matching the
// given registry name (e.g. "azure", "openrouter"). Returns nil if unknown.
func (c *Config) ProviderByName(name string) *provider.ProviderConfig {
	return c.Providers.ByName(name)
}
