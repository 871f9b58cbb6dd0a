package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/guidelinehq/guideline-api/internal/config"
	"github.com/guidelinehq/guideline-api/internal/events"
	"github.com/guidelinehq/guideline-api/internal/generation"
	"github.com/guidelinehq/guideline-api/internal/platform/gemini"
	"github.com/guidelinehq/guideline-api/internal/platform/postgres"
	"github.com/guidelinehq/guideline-api/internal/platform/sqlitestore"
	"github.com/guidelinehq/guideline-api/internal/service"
	"github.com/guidelinehq/guideline-api/internal/store"
	"github.com/guidelinehq/guideline-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	jobStore store.JobStore

	// Service interfaces
	generator  generation.Generator
	jobService service.JobService

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	taskRunner *task.Runner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize the job store for the configured backend.
	switch cfg.Database.Driver {
	case "postgres":
		app.jobStore = postgres.NewPostgresJobStore(db, logger)
	case "sqlite":
		app.jobStore = sqlitestore.NewSQLiteJobStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	// Create the LLM generator service
	var err error
	app.generator, err = gemini.NewGeminiGenerator(
		ctx,
		logger.With("component", "llm_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized successfully", "model", cfg.LLM.ModelName)

	// Initialize and start the task runner
	app.taskRunner = task.NewRunner(task.RunnerConfig{
		WorkerCount: cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		MaxAttempts: cfg.Worker.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Worker.RetryDelaySeconds) * time.Second,
	}, logger.With("component", "task_runner"))
	app.taskRunner.Start()

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize job service
	jobRepoAdapter := service.NewJobRepositoryAdapter(app.jobStore, app.db)
	app.jobService, err = service.NewJobService(
		jobRepoAdapter,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	// Create the task factory and wire the event handler that turns job
	// queued events into runner submissions.
	taskFactory := task.NewGuidelineTaskFactory(app.jobService, app.generator, logger)
	taskHandler := task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger)

	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(task.TaskTypeGuidelineProcessing, taskHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register task handler")
	}

	// Requeue jobs interrupted by a previous shutdown.
	requeued, err := app.jobService.RequeueInterrupted(ctx)
	if err != nil {
		logger.Error("failed to requeue interrupted jobs", "error", err)
	} else if requeued > 0 {
		logger.Info("requeued jobs from previous run", "count", requeued)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop task runner
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
