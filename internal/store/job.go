package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
)

// JobStore defines the interface for job data persistence.
type JobStore interface {
	// Create saves a new job to the store.
	// It handles domain validation internally; a job with empty guideline
	// text is rejected with ErrInvalidEntity.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Update saves changes to an existing job. The caller is expected to
	// have mutated the job through its domain methods so that updated_at
	// is already refreshed. Last write wins; no conflict detection.
	// Returns ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, job *domain.Job) error

	// FindJobsByStatus retrieves jobs with the specified status, ordered
	// by creation time. Returns an empty slice if none match. Used by the
	// startup recovery path to requeue interrupted jobs.
	FindJobsByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]*domain.Job, error)

	// WithTx returns a new JobStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) JobStore
}
