package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kidslingo/kidslingo/internal/contract"
	"github.com/kidslingo/kidslingo/internal/executor"
	"github.com/kidslingo/kidslingo/internal/learning"
	"github.com/kidslingo/kidslingo/internal/logger"
	"github.com/kidslingo/kidslingo/internal/store"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call the tool contracts",
}

var toolsContract string

func init() {
	toolsCmd.PersistentFlags().StringVar(&toolsContract, "contract", "", "Contract name (default tools.contract)")
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
}

func resolveContract() (*contract.Catalog, error) {
	name := toolsContract
	if name == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		name = cfg.Tools.Contract
	}
	return contract.Load(name)
}

// ---- list ------------------------------------------------------------------

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools of a contract",
	RunE: func(_ *cobra.Command, _ []string) error {
		catalog, err := resolveContract()
		if err != nil {
			return err
		}
		fmt.Printf("%s contract %q v%d (%d tools)\n\n", logo, catalog.Name(), catalog.Version(), len(catalog.List()))
		for _, spec := range catalog.List() {
			fmt.Printf("  %-26s %s\n", spec.Name, truncStr(spec.Description, 70))
		}
		return nil
	},
}

// ---- call ------------------------------------------------------------------

var toolsCallCmd = &cobra.Command{
	Use:   "call <name> [json-args]",
	Short: "Run one tool in-process and print its result",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		closeLog, err := logger.Setup(cfg.Logger)
		if err != nil {
			return err
		}
		defer closeLog()

		catalog, err := resolveContract()
		if err != nil {
			return err
		}

		name := args[0]
		callArgs := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &callArgs); err != nil {
				return fmt.Errorf("arguments must be a JSON object: %w", err)
			}
		}
		if err := catalog.Validate(name, callArgs); err != nil {
			return err
		}

		opts := learning.Options{Tools: cfg.Tools}
		if path := cfg.StorePath(); path != "" {
			st, err := store.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer st.Close()
			opts.Store = st
		}
		svc := learning.New(opts)

		timeout := time.Duration(cfg.Tools.TimeoutSeconds) * time.Second
		exec := executor.NewGuard(catalog, executor.NewLocal(svc.AllHandlers(), timeout))
		res, err := exec.Execute(context.Background(), name, callArgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.Content())
		if res.IsError() {
			return fmt.Errorf("tool %s returned an error", name)
		}
		return nil
	},
}

func truncStr(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
