package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kidslingo/kidslingo/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and workspace",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		cfg = existing
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		def := config.DefaultConfig()
		cfg = &def
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(filepath.Join(workspace, "sessions"), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", workspace)

	if p := cfg.StorePath(); p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
		fmt.Printf("✓ Store at %s\n", p)
	}

	createPromptTemplate(workspace)

	fmt.Printf("\n%s kidslingo is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your Azure OpenAI endpoint and key to %s\n", cfgPath)
	fmt.Println("     (or export AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, AZURE_OPENAI_DEPLOYMENT)")
	fmt.Printf("  2. Chat: kidslingo agent -m \"블루이 영상 추천해줘\"\n")
	fmt.Printf("  3. Serve: kidslingo serve\n")
	return nil
}

// createPromptTemplate writes an editable copy hint for agents.defaults.promptFile.
func createPromptTemplate(workspace string) {
	p := filepath.Join(workspace, "PROMPT.md")
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return
	}
	content := `# Tutor prompt

Point agents.defaults.promptFile at this file to replace the built-in tutor
instruction. The whole file is sent as the system message on every turn.
`
	if err := os.WriteFile(p, []byte(content), 0o644); err == nil {
		fmt.Println("  Created PROMPT.md")
	}
}
