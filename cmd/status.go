package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kidslingo/kidslingo/internal/config"
	"github.com/kidslingo/kidslingo/internal/config/tool"
	"github.com/kidslingo/kidslingo/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show kidslingo status",
	RunE:  runStatus,
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	fmt.Printf("%s kidslingo Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:    %s %s\n", cfgPath, mark(statErr == nil))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	ws := cfg.WorkspacePath()
	_, wsErr := os.Stat(ws)
	fmt.Printf("Workspace: %s %s\n", ws, mark(wsErr == nil))
	fmt.Printf("Model:     %s (provider %s)\n", cfg.Agents.Defaults.Model, orNotSet(cfg.GetProviderName("")))
	fmt.Printf("Tools:     contract %s, backend %s, max rounds %d, disabled %v\n",
		cfg.Tools.Contract, cfg.Tools.Backend, cfg.Agents.Defaults.MaxToolRounds, cfg.Agents.Defaults.DisableTools)
	if cfg.Tools.Backend == tool.BackendRemote {
		fmt.Printf("Remote:    %s\n", orNotSet(cfg.Tools.Remote.BaseURL))
	}
	if p := cfg.StorePath(); p != "" {
		_, stErr := os.Stat(p)
		fmt.Printf("Store:     %s %s\n", p, mark(stErr == nil))
	} else {
		fmt.Println("Store:     (disabled)")
	}
	fmt.Println()

	fmt.Println("Providers:")
	for _, spec := range providers.PROVIDERS {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		label := spec.Label()
		switch {
		case spec.IsLocal:
			if p.APIBase != "" {
				fmt.Printf("  %-20s ✓ %s\n", label, p.APIBase)
			} else {
				fmt.Printf("  %-20s (not set)\n", label)
			}
		default:
			if p.APIKey != "" {
				fmt.Printf("  %-20s ✓\n", label)
			} else {
				fmt.Printf("  %-20s (not set)\n", label)
			}
		}
	}

	fmt.Println("\nIntegrations:")
	integrations := []struct {
		name string
		ok   bool
	}{
		{"YouTube", cfg.Tools.YouTube.APIKey != ""},
		{"Azure Maps", cfg.Tools.Maps.APIKey != ""},
		{"Azure Speech", cfg.Tools.Speech.APIKey != "" && cfg.Tools.Speech.Region != ""},
		{"Azure AI Search", cfg.Tools.Search.Endpoint != "" && cfg.Tools.Search.APIKey != ""},
	}
	for _, it := range integrations {
		if it.ok {
			fmt.Printf("  %-20s ✓\n", it.name)
		} else {
			fmt.Printf("  %-20s (not set, tools answer with sample data)\n", it.name)
		}
	}
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
