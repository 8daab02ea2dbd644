// Package cmd implements the kidslingo CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🧸"

var configPath string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "kidslingo",
	Short: logo + " kidslingo, an English tutor for kids",
	Long:  logo + " kidslingo runs tutoring turns against a chat-completion provider with learning tools",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.kidslingo/config.json)")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toolsCmd)
}
