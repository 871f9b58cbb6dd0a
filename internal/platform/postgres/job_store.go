package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/platform/logger"
	"github.com/guidelinehq/guideline-api/internal/store"
)

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
// It returns a new JobStore instance that uses the provided transaction.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.JobStore.Create
// It saves a new job to the database, handling domain validation.
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Status,
		job.GuidelineText,
		nullString(job.Summary),
		checklist,
		nullString(job.ErrorMessage),
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return MapError(err)
	}

	log.Info("job created successfully",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(job.Status)))
	return nil
}

// GetByID implements store.JobStore.GetByID
// It retrieves a job by its unique ID.
// Returns store.ErrJobNotFound if the job does not exist.
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving job by ID", slog.String("job_id", id.String()))

	query := `
		SELECT id, status, guideline_text, summary, checklist, error_message, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
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

// Update implements store.JobStore.Update
// It saves changes to an existing job.
// Returns store.ErrJobNotFound if the job does not exist.
func (s *PostgresJobStore) Update(ctx context.Context, job *domain.Job) error {
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
		SET status = $1, summary = $2, checklist = $3, error_message = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		job.Status,
		nullString(job.Summary),
		checklist,
		nullString(job.ErrorMessage),
		job.UpdatedAt,
		job.ID,
	)

	if err != nil {
		log.Error("failed to update job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()),
			slog.String("status", string(job.Status)))
		return MapError(err)
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

// FindJobsByStatus implements store.JobStore.FindJobsByStatus
// It retrieves jobs with the specified status ordered by creation time.
// Returns an empty slice if no jobs match the criteria.
func (s *PostgresJobStore) FindJobsByStatus(
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

	log.Debug("finding jobs by status",
		slog.String("status", string(status)),
		slog.Int("limit", limit),
		slog.Int("offset", offset))

	query := `
		SELECT id, status, guideline_text, summary, checklist, error_message, created_at, updated_at
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, status, limit, offset)
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

// scanJob reads one job row, decoding the nullable result columns.
func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		status       string
		summary      sql.NullString
		checklist    []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&job.ID,
		&status,
		&job.GuidelineText,
		&summary,
		&checklist,
		&errorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	job.Summary = summary.String
	job.ErrorMessage = errorMessage.String

	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &job.Checklist); err != nil {
			return nil, fmt.Errorf("failed to decode checklist: %w", err)
		}
	}

	return &job, nil
}

// marshalChecklist encodes a checklist for the jsonb column. A nil
// checklist is stored as SQL NULL so the result-presence invariant is
// visible in the schema.
func marshalChecklist(checklist domain.Checklist) (any, error) {
	if checklist == nil {
		return nil, nil
	}
	data, err := json.Marshal(checklist)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checklist: %w", err)
	}
	return data, nil
}

// nullString converts an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
