package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/qhunt/internal/api/middleware"
	"github.com/mcoot/qhunt/internal/config"
	"github.com/mcoot/qhunt/internal/dependencies/clock"
	"github.com/mcoot/qhunt/internal/dependencies/random"
	"github.com/mcoot/qhunt/internal/export"
	"github.com/mcoot/qhunt/internal/metrics"
	"github.com/mcoot/qhunt/internal/services/event"
	"github.com/mcoot/qhunt/internal/services/game"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/services/registry"
	"github.com/mcoot/qhunt/internal/services/teams"
	"github.com/mcoot/qhunt/internal/storage"
	"github.com/mcoot/qhunt/internal/storage/memory"
	"github.com/mcoot/qhunt/internal/storage/postgres"
	redisstorage "github.com/mcoot/qhunt/internal/storage/redis"
	"github.com/mcoot/qhunt/internal/web/sse"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage  storage.Storage
	Realtime storage.Realtime

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Metrics *metrics.Metrics

	// Projection
	Projector  *projector.Projector
	Dispatcher projector.Dispatcher
	// Queue is set when updates are projected asynchronously
	Queue *projector.Queue

	// Services
	EventController *event.Controller
	GameController  *game.Controller
	Registry        *registry.Service
	TeamService     *teams.Service
	ExportService   *export.Service
	HubManager      *sse.HubManager
	RateLimiter     *middleware.IPRateLimiter

	closers []io.Closer
}

// Config holds configuration for the application factory.
// The zero value runs everything in memory with inline projection.
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the ledger backend ("memory" or "postgres")
	StorageType string
	// Postgres is required when StorageType is "postgres"
	Postgres *postgres.Config

	// RealtimeType selects the projection backend ("memory" or "redis")
	RealtimeType string
	// Redis is required when RealtimeType is "redis"
	Redis *redisstorage.Config

	// ProjectorMode is "inline" or "queue"
	ProjectorMode string
	Queue         projector.QueueConfig

	// RateLimit enables per-address limiting of player routes when RequestsPerSecond > 0
	RateLimit config.RateLimitConfig
}

// FromConfig maps the server configuration onto factory settings
func FromConfig(cfg config.Config, logger *slog.Logger) Config {
	pg := postgres.Config{
		DSN:             cfg.Storage.Postgres.DSN,
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		Migrate:         cfg.Storage.Postgres.Migrate,
	}
	rd := redisstorage.DefaultConfig()
	rd.URL = cfg.Realtime.Redis.URL
	rd.PoolSize = cfg.Realtime.Redis.PoolSize
	rd.MinIdleConns = cfg.Realtime.Redis.MinIdleConns
	rd.ProjectionTTL = cfg.Realtime.Redis.ProjectionTTL

	queue := projector.DefaultQueueConfig()
	if cfg.Projector.Buffer > 0 {
		queue.Buffer = cfg.Projector.Buffer
	}
	queue.MaxRetries = cfg.Projector.MaxRetries
	if cfg.Projector.RetryInterval > 0 {
		queue.RetryInterval = cfg.Projector.RetryInterval
	}

	return Config{
		Logger:        logger,
		StorageType:   cfg.Storage.Type,
		Postgres:      &pg,
		RealtimeType:  cfg.Realtime.Type,
		Redis:         &rd,
		ProjectorMode: cfg.Projector.Mode,
		Queue:         queue,
		RateLimit:     cfg.RateLimit,
	}
}

// New creates a new application with all dependencies wired.
// Call Close to release backend connections.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	// Create the ledger
	var store storage.Storage
	switch cfg.StorageType {
	case "", config.StorageMemory:
		store = memory.New()
	case config.StoragePostgres:
		if cfg.Postgres == nil {
			return nil, errors.New("Postgres config required when StorageType is postgres")
		}
		pg, err := postgres.New(ctx, *cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store = pg
		closers = append(closers, pg)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory' or 'postgres'", cfg.StorageType)
	}

	// Create the projection store
	var rt storage.Realtime
	switch cfg.RealtimeType {
	case "", config.RealtimeMemory:
		rt = memory.NewRealtime()
	case config.RealtimeRedis:
		if cfg.Redis == nil {
			closeAll()
			return nil, errors.New("Redis config required when RealtimeType is redis")
		}
		rd, err := redisstorage.New(*cfg.Redis)
		if err != nil {
			closeAll()
			return nil, err
		}
		rt = rd
		closers = append(closers, rd)
	default:
		closeAll()
		return nil, fmt.Errorf("invalid RealtimeType %q: must be 'memory' or 'redis'", cfg.RealtimeType)
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app, err := newWithDependencies(store, rt, clk, rnd, cfg, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	app.closers = append(closers, app.closers...)
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	rt storage.Realtime,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) (*App, error) {
	m := metrics.New()
	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)

	teamService := teams.NewService(store, rt, logger)
	proj := projector.New(store, rt, teamService, broadcaster, clk, m, logger)

	app := &App{
		Storage:     store,
		Realtime:    rt,
		Clock:       clk,
		Random:      rnd,
		Metrics:     m,
		Projector:   proj,
		TeamService: teamService,
		HubManager:  hubManager,
	}

	switch cfg.ProjectorMode {
	case "", config.ProjectorInline:
		app.Dispatcher = projector.NewInline(proj, logger)
	case config.ProjectorQueue:
		queueCfg := cfg.Queue
		if queueCfg == (projector.QueueConfig{}) {
			queueCfg = projector.DefaultQueueConfig()
		}
		queue, err := projector.NewQueue(proj, queueCfg, m.Registry, logger)
		if err != nil {
			return nil, err
		}
		app.Queue = queue
		app.Dispatcher = queue
		app.closers = append(app.closers, queue)
	default:
		return nil, fmt.Errorf("invalid ProjectorMode %q: must be 'inline' or 'queue'", cfg.ProjectorMode)
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond > 0 {
		app.RateLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	app.EventController = event.NewController(store, app.Dispatcher, clk, m, logger)
	app.GameController = game.NewController(store, app.Dispatcher, clk, m, logger)
	app.Registry = registry.NewService(store, app.Dispatcher, clk, rnd, m, logger)
	app.ExportService = export.NewService(store, logger)

	return app, nil
}

// Start launches background workers. It returns once they are accepting work.
func (a *App) Start(ctx context.Context) error {
	if a.Queue == nil {
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Queue.Run(ctx)
	}()

	select {
	case <-a.Queue.Running():
		return nil
	case err := <-errCh:
		return fmt.Errorf("start projector queue: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops workers and releases backend connections
func (a *App) Close() error {
	a.HubManager.CloseAll()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
