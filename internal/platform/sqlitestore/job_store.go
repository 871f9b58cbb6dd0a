package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/platform/logger"
	"github.com/guidelinehq/guideline-api/internal/store"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
	guideline_text TEXT NOT NULL CHECK (length(guideline_text) > 0),
	summary TEXT,
	checklist TEXT,
	error_message TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_created_at ON jobs (status, created_at);
`

// Open opens (or creates) a SQLite database at the given path and ensures
// the schema exists. Use ":memory:" for an in-process database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The driver serializes access per connection; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return db, nil
}

// SQLiteJobStore implements the store.JobStore interface using a SQLite
// database as the storage backend. Timestamps are stored as Unix
// milliseconds and the checklist as serialized JSON text.
type SQLiteJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteJobStore creates a new SQLite implementation of the JobStore
// interface. If logger is nil, a default logger will be used.
func NewSQLiteJobStore(db store.DBTX, logger *slog.Logger) *SQLiteJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure SQLiteJobStore implements store.JobStore interface
var _ store.JobStore = (*SQLiteJobStore)(nil)

// WithTx returns a new JobStore instance that uses the provided transaction.
func (s *SQLiteJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &SQLiteJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create saves a new job to the database, handling domain validation.
func (s *SQLiteJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	checklist, err := marshalChecklist(job.Checklist)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, status, guideline_text, summary, checklist, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		job.ID.String(),
		string(job.Status),
		job.GuidelineText,
		nullString(job.Summary),
		checklist,
		nullString(job.ErrorMessage),
		job.CreatedAt.UnixMilli(),
		job.UpdatedAt.UnixMilli(),
	)

	if err != nil {
		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	log.Info("job created successfully",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(job.Status)))
	return nil
}

// GetByID retrieves a job by its unique ID.
// Returns store.ErrJobNotFound if the job does not exist.
func (s *SQLiteJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, status, guideline_text, summary, checklist, error_message, created_at, updated_at
		FROM jobs
		WHERE id = ?
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("job not found", slog.String("job_id", id.String()))
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job by ID",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return nil, err
	}

	return job, nil
}

// Update saves changes to an existing job.
// Returns store.ErrJobNotFound if the job does not exist.
func (s *SQLiteJobStore) Update(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during update",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	checklist, err := marshalChecklist(job.Checklist)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET status = ?, summary = ?, checklist = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		string(job.Status),
		nullString(job.Summary),
		checklist,
		nullString(job.ErrorMessage),
		job.UpdatedAt.UnixMilli(),
		job.ID.String(),
	)

	if err != nil {
		log.Error("failed to update job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("job not found for update",
			slog.String("job_id", job.ID.String()))
		return store.ErrJobNotFound
	}

	log.Info("job updated successfully",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(job.Status)))
	return nil
}

// FindJobsByStatus retrieves jobs with the specified status ordered by
// creation time. Returns an empty slice if no jobs match the criteria.
func (s *SQLiteJobStore) FindJobsByStatus(
	ctx context.Context,
	status domain.JobStatus,
	limit, offset int,
) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, status, guideline_text, summary, checklist, error_message, created_at, updated_at
		FROM jobs
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		log.Error("failed to query jobs by status",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			log.Error("failed to scan job row",
				slog.String("error", err.Error()))
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("found jobs by status",
		slog.String("status", string(status)),
		slog.Int("count", len(jobs)))
	return jobs, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one job row, decoding the string-encoded ID, the Unix
// millisecond timestamps, and the nullable result columns.
func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		id           string
		status       string
		summary      sql.NullString
		checklist    sql.NullString
		errorMessage sql.NullString
		createdAt    int64
		updatedAt    int64
	)

	err := row.Scan(
		&id,
		&status,
		&job.GuidelineText,
		&summary,
		&checklist,
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job ID %q: %w", id, err)
	}

	job.ID = jobID
	job.Status = domain.JobStatus(status)
	job.Summary = summary.String
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = time.UnixMilli(createdAt).UTC()
	job.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if checklist.Valid && checklist.String != "" {
		if err := json.Unmarshal([]byte(checklist.String), &job.Checklist); err != nil {
			return nil, fmt.Errorf("failed to decode checklist: %w", err)
		}
	}

	return &job, nil
}

// marshalChecklist encodes a checklist for the TEXT column. A nil
// checklist is stored as SQL NULL.
func marshalChecklist(checklist domain.Checklist) (any, error) {
	if checklist == nil {
		return nil, nil
	}
	data, err := json.Marshal(checklist)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checklist: %w", err)
	}
	return string(data), nil
}

// nullString converts an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
