package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/guidelinehq/guideline-api/internal/config"
	"github.com/guidelinehq/guideline-api/internal/platform/postgres/migrations"
	"github.com/guidelinehq/guideline-api/internal/platform/sqlitestore"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// openDatabase opens the configured storage backend and brings its schema
// up to date. PostgreSQL schemas are managed through the embedded goose
// migrations; the SQLite backend creates its schema on open.
func openDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return openPostgres(cfg.Database.URL, logger)
	case "sqlite":
		logger.Info("opening sqlite database", "path", cfg.Database.URL)
		return sqlitestore.Open(cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// openPostgres opens a PostgreSQL connection pool, verifies connectivity,
// and applies pending migrations.
func openPostgres(url string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("database connection verified")

	if err := applyMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// applyMigrations runs the embedded goose migrations against the open
// database.
func applyMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	start := time.Now()
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		logger.Warn("failed to read migration version", "error", err)
	} else {
		logger.Info("migrations applied",
			"version", version,
			"duration_ms", time.Since(start).Milliseconds())
	}

	return nil
}
