package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/qhunt/internal/api"
	"github.com/mcoot/qhunt/internal/config"
	"github.com/mcoot/qhunt/internal/factory"
	"github.com/mcoot/qhunt/internal/web/sse"
)

const hubCleanupInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", os.Getenv("QHUNT_CONFIG"), "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factory.FromConfig(*cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		exitCode = 1
		return
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start projection", slog.String("error", err.Error()))
		exitCode = 1
		return
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		EventController: app.EventController,
		GameController:  app.GameController,
		Registry:        app.Registry,
		Projector:       app.Projector,
		TeamService:     app.TeamService,
		ExportService:   app.ExportService,
		HubManager:      app.HubManager,
		Metrics:         app.Metrics,
		RateLimiter:     app.RateLimiter,
	})

	server := api.NewServer(router, cfg.Server, logger)

	go cleanupHubs(ctx, app.HubManager, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("realtime", cfg.Realtime.Type),
		slog.String("projector", cfg.Projector.Mode),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	if exitCode == 0 {
		logger.Info("server stopped")
	}
}

// cleanupHubs drops spectator hubs nobody is watching
func cleanupHubs(ctx context.Context, hubs *sse.HubManager, logger *slog.Logger) {
	ticker := time.NewTicker(hubCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := hubs.CleanupEmptyHubs(); removed > 0 {
				logger.Debug("removed empty hubs", slog.Int("count", removed))
			}
		}
	}
}
