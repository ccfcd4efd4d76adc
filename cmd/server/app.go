package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/events"
	"github.com/phrazzld/exercise-api/internal/export"
	"github.com/phrazzld/exercise-api/internal/generation"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/platform/blob"
	"github.com/phrazzld/exercise-api/internal/platform/gcs"
	"github.com/phrazzld/exercise-api/internal/platform/gemini"
	"github.com/phrazzld/exercise-api/internal/platform/memstore"
	"github.com/phrazzld/exercise-api/internal/platform/postgres"
	"github.com/phrazzld/exercise-api/internal/platform/redis"
	"github.com/phrazzld/exercise-api/internal/service"
	"github.com/phrazzld/exercise-api/internal/service/auth"
	"github.com/phrazzld/exercise-api/internal/service/cleanup"
	"github.com/phrazzld/exercise-api/internal/service/stats"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/task"
)

// statsCachePrefix namespaces statistics keys in a shared Redis.
const statsCachePrefix = "exercise-api:stats:"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	clock  clock.Clock
	db     *sql.DB

	// location is the time zone of calendar dates in requests and statistics.
	location *time.Location

	// Stores
	generations store.GenerationStore
	downloads   store.DownloadStore
	blobs       blob.Store

	// Service interfaces
	jwtService        auth.JWTService
	passwordVerifier  auth.PasswordVerifier
	generator         generation.Generator
	catalog           *service.Catalog
	generationService service.GenerationService
	exportService     service.ExportService
	stats             *stats.Aggregator

	// Cleanup
	sweeper          *cleanup.Sweeper
	cleanupScheduler *cleanup.Scheduler

	// Event system and task handling
	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner

	// closers release external clients in reverse order on shutdown.
	closers []func() error
}

// newApplication creates a new application instance with all dependencies
// initialized but no background work started. A nil clk uses the system clock.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, clk clock.Clock) (*application, error) {
	if clk == nil {
		clk = clock.System{}
	}
	app := &application{
		config: cfg,
		logger: logger,
		clock:  clk,
	}

	var err error
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	metrics.MustRegister()

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)
	app.passwordVerifier = auth.NewBcryptVerifier()

	if err = app.setupStores(ctx); err != nil {
		return nil, err
	}
	if err = app.setupBlobStore(ctx); err != nil {
		return nil, err
	}
	if app.generator, err = setupGenerator(ctx, cfg, logger); err != nil {
		return nil, err
	}

	app.catalog = service.NewCatalog(cfg.Catalog)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.generationService, err = service.NewGenerationService(
		app.generations, app.catalog, app.eventEmitter, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	app.exportService, err = service.NewExportService(
		app.generations, app.downloads, app.blobs, app.eventEmitter, clk, cfg.Export.DownloadTTL(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create export service: %w", err)
	}

	if app.stats, err = app.setupStats(ctx); err != nil {
		return nil, err
	}

	app.sweeper = cleanup.NewSweeper(app.downloads, app.blobs, clk, logger)
	if cfg.Cleanup.Enabled {
		app.cleanupScheduler = cleanup.NewScheduler(app.sweeper, cfg.Cleanup.Interval(), logger)
	}

	taskFactory := task.NewTaskFactory(
		app.generations,
		app.downloads,
		app.generator,
		export.NewDefaultRegistry(cfg.Export.PDFFontPath),
		app.blobs,
		clk,
		task.TaskFactoryConfig{
			GenerationTimeout: cfg.Task.GenerationTimeout(),
			RenderTimeout:     cfg.Task.RenderTimeout(),
		},
		logger,
	)
	app.taskRunner = task.NewTaskRunner(
		task.NewJobTaskStore(app.generations, app.downloads, taskFactory, clk),
		task.TaskRunnerConfig{
			WorkerCount:            cfg.Task.WorkerCount,
			QueueSize:              cfg.Task.QueueSize,
			StuckTaskAge:           cfg.Task.StaleAfter(),
			StuckTaskCheckInterval: cfg.Task.MonitorInterval(),
		},
		logger,
	)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger))

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupStores selects the record store backend.
func (app *application) setupStores(ctx context.Context) error {
	switch app.config.Database.Driver {
	case "memory":
		app.generations = memstore.NewGenerationStore(app.logger)
		app.downloads = memstore.NewDownloadStore(app.logger)
		app.logger.Warn("Using in-memory record store, data is lost on restart")
		return nil
	case "postgres":
		db, err := setupAppDatabase(ctx, app.config, app.logger)
		if err != nil {
			return err
		}
		app.db = db
		app.closers = append(app.closers, db.Close)
		if app.config.Database.AutoMigrate {
			if err := runMigrations(ctx, db, "up", app.logger); err != nil {
				return err
			}
		}
		app.generations = postgres.NewPostgresGenerationStore(db, app.logger)
		app.downloads = postgres.NewPostgresDownloadStore(db, app.logger)
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", app.config.Database.Driver)
	}
}

// setupBlobStore selects where rendered files are kept.
func (app *application) setupBlobStore(ctx context.Context) error {
	cfg := app.config.Storage
	switch cfg.Backend {
	case "memory":
		app.blobs = blob.NewMemoryStore()
	case "local":
		local, err := blob.NewLocalStore(cfg.LocalDir, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		app.blobs = local
	case "gcs":
		bucket, err := gcs.New(ctx, gcs.Config{Bucket: cfg.GCSBucket, EmulatorHost: cfg.GCSEmulatorHost}, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize GCS blob store: %w", err)
		}
		app.blobs = bucket
		app.closers = append(app.closers, bucket.Close)
	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	app.logger.Info("Blob store initialized", "backend", cfg.Backend)
	return nil
}

// setupGenerator creates the exercise generator named by llm.provider.
func setupGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (generation.Generator, error) {
	switch cfg.LLM.Provider {
	case "builtin":
		logger.Info("Using built-in arithmetic generator")
		return generation.NewArithmeticGenerator(), nil
	case "gemini":
		g, err := gemini.NewGeminiGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		logger.Info("LLM generator initialized successfully", "model", cfg.LLM.ModelName)
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}

// setupStats creates the statistics aggregator, caching in Redis when configured.
func (app *application) setupStats(ctx context.Context) (*stats.Aggregator, error) {
	loc, err := time.LoadLocation(app.config.Stats.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid stats.time_zone %q: %w", app.config.Stats.TimeZone, err)
	}
	app.location = loc

	var cache stats.Cache
	if app.config.Redis.Addr != "" {
		rc, err := redis.NewCache(ctx, redis.Config{
			Addr:     app.config.Redis.Addr,
			Password: app.config.Redis.Password,
			DB:       app.config.Redis.DB,
		}, statsCachePrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect statistics cache: %w", err)
		}
		app.closers = append(app.closers, rc.Close)
		cache = rc
		app.logger.Info("Statistics cache enabled", "ttl", app.config.Stats.CacheTTL())
	}

	fallback := stats.Recommendation{DifficultyLevel: domain.DifficultySame}
	if subjects := app.catalog.Subjects(); len(subjects) > 0 {
		fallback.Subject = subjects[0]
	}
	if grades := app.catalog.Grades(); len(grades) > 0 {
		fallback.Grade = grades[0]
	}

	return stats.NewAggregator(app.generations, app.downloads, cache, app.clock, stats.Config{
		Location: loc,
		CacheTTL: app.config.Stats.CacheTTL(),
		Fallback: fallback,
	}, app.logger), nil
}

// start launches the task runner, which first recovers unfinished jobs, and
// the cleanup scheduler.
func (app *application) start() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	if app.cleanupScheduler != nil {
		app.cleanupScheduler.Start()
	}
	return nil
}

// Run starts the background workers and the HTTP server, handling lifecycle
// and cleanup. It returns when ctx is cancelled or the server fails.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(); err != nil {
		app.cleanup()
		return err
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.cleanupScheduler != nil {
		app.cleanupScheduler.Stop()
		app.cleanupScheduler = nil
	}
	if app.taskRunner != nil {
		app.taskRunner.Stop()
		app.taskRunner = nil
	}

	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("Error releasing resources", "error", err)
	}

	app.logger.Info("Application shutdown completed")
}
