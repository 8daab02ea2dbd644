package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort      int
	serveToolsPort int
	serveNoTools   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the turn API, the tool server and the report scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Turn API port (overrides gateway.port)")
	serveCmd.Flags().IntVar(&serveToolsPort, "tools-port", 0, "Tool server port (overrides toolServer.port)")
	serveCmd.Flags().BoolVar(&serveNoTools, "no-tool-server", false, "Do not start the tool server")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Gateway.Port = servePort
	}
	if serveToolsPort > 0 {
		cfg.ToolServer.Port = serveToolsPort
	}
	if serveNoTools {
		cfg.ToolServer.Enabled = false
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	apiSrv, err := container.APIServer()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return apiSrv.Run(gctx) })
	fmt.Printf("%s Turn API on %s:%d (contract %s)\n", logo, cfg.Gateway.Host, cfg.Gateway.Port, container.Contract().Name())

	if cfg.ToolServer.Enabled {
		toolSrv, err := container.ToolServer()
		if err != nil {
			return err
		}
		g.Go(func() error { return toolSrv.Run(gctx) })
		fmt.Printf("✓ Tool server on %s:%d%s/tools\n", cfg.ToolServer.Host, cfg.ToolServer.Port, cfg.ToolServer.Prefix)
	}

	if cfg.Reports.Enabled {
		sched, err := container.Scheduler()
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(gctx) })
		fmt.Printf("✓ Parent reports on %q for %d children\n", cfg.Reports.Schedule, len(cfg.Reports.ChildIDs))
	}

	fmt.Printf("%s Running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
