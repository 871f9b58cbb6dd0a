// Package main implements the entry point for the guideline API server,
// which accepts free-text guideline submissions and processes them
// asynchronously into summaries and actionable checklists.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/guidelinehq/guideline-api/internal/config"
	"github.com/guidelinehq/guideline-api/internal/platform/logger"
)

// main initializes configuration, logging, the database, and all
// application components, then runs the HTTP server until shutdown.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

// run carries the whole application lifecycle so that deferred cleanup
// executes before the process exits.
func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver)

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		// The application owns cleanup once constructed; before that, close
		// the database here.
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("Error closing database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
