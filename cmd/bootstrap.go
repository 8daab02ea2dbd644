package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kidslingo/kidslingo/internal/config"
	"github.com/kidslingo/kidslingo/internal/dependency"
	"github.com/kidslingo/kidslingo/internal/logger"
	"github.com/kidslingo/kidslingo/internal/tracer"
)

// loadConfig reads the config file and overlays the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// bootstrap installs logging and tracing and builds the service container.
// The returned cleanup flushes traces and closes the store and log file.
func bootstrap(ctx context.Context, cfg *config.Config) (*dependency.Container, func(), error) {
	closeLog, err := logger.Setup(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}

	container, err := dependency.New(cfg)
	if err != nil {
		_ = shutdownTracer(ctx)
		_ = closeLog()
		return nil, nil, err
	}

	cleanup := func() {
		errs := errors.Join(
			container.Close(),
			shutdownTracer(context.Background()),
		)
		if errs != nil {
			slog.Warn("Shutdown", "err", errs)
		}
		_ = closeLog()
	}
	return container, cleanup, nil
}
