// Package app wires the configured dependencies, builds one control loop
// per profile and runs them next to the ops server until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/orderbot/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, starts every bot and blocks until all loops have
// stopped, either because ctx was cancelled or because each was stopped
// through the ops API. A bot that fails to start makes Run return its error
// after the other loops have drained.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("environment", a.cfg.Environment),
		slog.Int("profiles", len(a.cfg.Profiles)),
		slog.String("persistence", a.cfg.Persistence.Driver),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("s3", a.cfg.S3.Enabled),
	)

	stopProfiler, err := startProfiler(a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, stopProfiler)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	bots, err := a.buildBots(deps)
	if err != nil {
		return fmt.Errorf("app: build bots: %w", err)
	}
	return a.run(ctx, deps, bots)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
