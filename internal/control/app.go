package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/dispatcher/internal/backend"
	"github.com/vietddude/dispatcher/internal/core/config"
	"github.com/vietddude/dispatcher/internal/core/worker"
	"github.com/vietddude/dispatcher/internal/dispatch"
	"github.com/vietddude/dispatcher/internal/health"
	"github.com/vietddude/dispatcher/internal/infra/redis"
	"github.com/vietddude/dispatcher/internal/infra/storage"
	"github.com/vietddude/dispatcher/internal/infra/storage/memory"
	"github.com/vietddude/dispatcher/internal/infra/storage/postgres"
	"github.com/vietddude/dispatcher/internal/metrics"
)

// App wires the dispatcher to its backends, storage and admin surface.
type App struct {
	cfg          *config.AppConfig
	backends     *backend.Registry
	dispatcher   *dispatch.Dispatcher
	history      storage.ExecutionRepository
	healthServer *health.Server
	collector    *metrics.HealthCollector
	snapshotter  *worker.Snapshotter
	pruner       *worker.Pruner
	db           *postgres.DB
	redisClient  *redis.Client
	log          *slog.Logger
}

// NewApp creates the application with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, log: logger}

	// 1. Backends
	backends, err := BuildBackends(cfg.Backends)
	if err != nil {
		return nil, fmt.Errorf("failed to build backends: %w", err)
	}
	a.backends = backends

	// 2. Execution history
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.history = postgres.NewExecutionRepo(db)
		logger.Info("Using PostgreSQL history")
	} else {
		a.history = memory.NewExecutionRepo()
		logger.Info("Using in-memory history")
	}

	// 3. Dispatcher
	d, err := dispatch.New(dispatch.Config{
		Backends:     backends,
		DefaultOrder: cfg.Dispatch.DefaultOrder,
		Policy:       cfg.Dispatch.Policy(),
		Logger:       logger,
		Observer: dispatch.MultiObserver{
			metrics.NewObserver(cfg.Dispatch.Kinds...),
			storage.NewHistoryObserver(a.history, logger),
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher = d

	a.collector = metrics.NewHealthCollector(d)
	if err := prometheus.Register(a.collector); err != nil {
		logger.Warn("Health collector not registered", "error", err)
		a.collector = nil
	}

	// 4. Health monitor and admin server
	monitor := health.NewMonitor(backends, d.Health(), health.Thresholds{
		Degraded:    cfg.Health.DegradedBelow,
		Critical:    cfg.Health.CriticalBelow,
		MinAttempts: cfg.Health.MinAttempts,
	})
	a.healthServer = health.NewServer(monitor, backends, d, cfg.Server.Port, logger)

	// 5. Redis snapshots are optional
	if cfg.Redis.URL != "" {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, snapshots disabled", "error", err)
		} else {
			a.redisClient = rc
			a.snapshotter = worker.NewSnapshotter(cfg.Health.SnapshotInterval, d, rc, logger)
		}
	}

	// 6. History retention
	if cfg.History.RetentionPeriod > 0 {
		a.pruner = worker.NewPruner(cfg.History.RetentionPeriod, a.history, logger)
	}

	return a, nil
}

// Dispatcher returns the wired dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// History returns the execution repository in use.
func (a *App) History() storage.ExecutionRepository {
	return a.history
}

// Run serves until ctx is done, then shuts the admin server down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("Admin server listening", "port", a.cfg.Server.Port)
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 15*time.Second)
		defer cancel()
		return a.healthServer.Stop(shutdownCtx)
	})

	if a.snapshotter != nil {
		g.Go(func() error { return a.snapshotter.Run(gctx) })
	}

	if a.pruner != nil {
		g.Go(func() error {
			a.pruner.Start(gctx)
			return nil
		})
	}

	if a.db != nil {
		a.db.StartMetricsCollector(gctx)
	}

	return g.Wait()
}

// Close releases backends, Redis and the database.
func (a *App) Close() {
	a.log.Info("Stopping dispatcher...")

	if a.collector != nil {
		prometheus.Unregister(a.collector)
	}

	if a.backends != nil {
		if err := a.backends.Close(); err != nil {
			a.log.Warn("Failed to close backends", "error", err)
		}
	}

	// Close Redis
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
