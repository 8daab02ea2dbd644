package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/kidslingo/kidslingo/internal/config/tool"
)

// ConfigPath returns the default configuration file path: ~/.kidslingo/config.json.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// DataDir returns the kidslingo data directory: ~/.kidslingo.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kidslingo"
	}
	return filepath.Join(home, ".kidslingo")
}

// Load reads and parses the config file at path.
// If path is empty, ConfigPath() is used. A missing file yields DefaultConfig();
// an unparsable one is logged and also yields DefaultConfig(). Out-of-range
// values are reset to their defaults by Sanitize.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("Failed to parse config, using defaults", "path", path, "err", err)
		cfg = DefaultConfig()
		return &cfg, nil
	}

	for _, fix := range cfg.Sanitize() {
		slog.Warn("Config value reset", "path", path, "field", fix)
	}
	return &cfg, nil
}

// Sanitize resets values the runtime cannot use to their defaults and
// returns the names of the fields it changed.
func (c *Config) Sanitize() []string {
	def := DefaultConfig()
	var fixed []string

	if c.Agents.Defaults.MaxToolRounds <= 0 {
		c.Agents.Defaults.MaxToolRounds = def.Agents.Defaults.MaxToolRounds
		fixed = append(fixed, "agents.defaults.maxToolRounds")
	}
	if c.Agents.Defaults.EmptyReply == "" {
		c.Agents.Defaults.EmptyReply = def.Agents.Defaults.EmptyReply
		fixed = append(fixed, "agents.defaults.emptyReply")
	}
	if !slices.Contains([]string{"auto", "none", "required"}, c.Agents.Defaults.ToolChoice) {
		c.Agents.Defaults.ToolChoice = def.Agents.Defaults.ToolChoice
		fixed = append(fixed, "agents.defaults.toolChoice")
	}
	if !slices.Contains([]string{tool.BackendLocal, tool.BackendRemote}, c.Tools.Backend) {
		c.Tools.Backend = def.Tools.Backend
		fixed = append(fixed, "tools.backend")
	}
	if c.Tools.Contract == "" {
		c.Tools.Contract = def.Tools.Contract
		fixed = append(fixed, "tools.contract")
	}
	if !slices.Contains([]string{"7d", "30d", "90d"}, c.Reports.Period) {
		c.Reports.Period = def.Reports.Period
		fixed = append(fixed, "reports.period")
	}
	return fixed
}

// Save writes cfg to path as indented JSON with owner-only permissions,
// since the file carries API keys. If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config %s: %w", path, err)
	}
	return nil
}
