package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/store"
)

// JobRepositoryAdapter bridges a store.JobStore and its database handle
// into the JobRepository interface the service layer depends on. The store
// itself stays ignorant of transaction ownership.
type JobRepositoryAdapter struct {
	jobStore store.JobStore
	db       *sql.DB
}

// NewJobRepositoryAdapter creates a JobRepository backed by the given store
// and database connection.
func NewJobRepositoryAdapter(jobStore store.JobStore, db *sql.DB) *JobRepositoryAdapter {
	return &JobRepositoryAdapter{
		jobStore: jobStore,
		db:       db,
	}
}

// Ensure JobRepositoryAdapter implements JobRepository
var _ JobRepository = (*JobRepositoryAdapter)(nil)

// Create saves a new job to the store
func (a *JobRepositoryAdapter) Create(ctx context.Context, job *domain.Job) error {
	return a.jobStore.Create(ctx, job)
}

// GetByID retrieves a job by its unique ID
func (a *JobRepositoryAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return a.jobStore.GetByID(ctx, id)
}

// Update saves changes to an existing job
func (a *JobRepositoryAdapter) Update(ctx context.Context, job *domain.Job) error {
	return a.jobStore.Update(ctx, job)
}

// FindJobsByStatus retrieves jobs with the specified status
func (a *JobRepositoryAdapter) FindJobsByStatus(
	ctx context.Context,
	status domain.JobStatus,
	limit, offset int,
) ([]*domain.Job, error) {
	return a.jobStore.FindJobsByStatus(ctx, status, limit, offset)
}

// WithTx returns a store instance bound to the provided transaction
func (a *JobRepositoryAdapter) WithTx(tx *sql.Tx) store.JobStore {
	return a.jobStore.WithTx(tx)
}

// DB returns the underlying database connection
func (a *JobRepositoryAdapter) DB() *sql.DB {
	return a.db
}
