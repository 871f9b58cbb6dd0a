package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/events"
	"github.com/guidelinehq/guideline-api/internal/store"
	"github.com/guidelinehq/guideline-api/internal/task"
)

// ErrJobNotFound indicates that the job does not exist. It wraps the store
// sentinel so callers can use either errors.Is check.
var ErrJobNotFound = fmt.Errorf("job: %w", store.ErrJobNotFound)

// JobRepository defines the persistence operations the service layer needs.
// It is aligned with store.JobStore plus access to the underlying database
// for transaction management.
type JobRepository interface {
	// Create saves a new job to the store
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Update saves changes to an existing job
	Update(ctx context.Context, job *domain.Job) error

	// FindJobsByStatus retrieves jobs with the specified status
	FindJobsByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]*domain.Job, error)

	// WithTx returns a repository instance bound to the provided transaction
	WithTx(tx *sql.Tx) store.JobStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// JobService provides the job lifecycle operations: synchronous submission
// and lookup for the API surface, and the worker-side state transitions.
type JobService interface {
	// SubmitGuideline creates a new pending job for the guideline text and
	// enqueues it for asynchronous processing. The returned job identifier
	// is the event id clients poll with.
	SubmitGuideline(ctx context.Context, guidelineText string) (*domain.Job, error)

	// GetJob retrieves a job by its ID
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// MarkJobProcessing transitions a job into the processing state,
	// clearing any error message from a prior failed attempt.
	MarkJobProcessing(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// CompleteJob records both pipeline outputs and marks the job completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID, summary string, checklist domain.Checklist) (*domain.Job, error)

	// FailJob marks the job failed and records the error message.
	FailJob(ctx context.Context, jobID uuid.UUID, message string) (*domain.Job, error)

	// RequeueInterrupted re-enqueues jobs left in pending or processing
	// state by a previous run. Returns the number of jobs requeued.
	RequeueInterrupted(ctx context.Context) (int, error)
}

// JobServiceError wraps errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "submit_guideline")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// newJobServiceError wraps an error with operation context, passing known
// sentinels through unchanged.
func newJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrJobNotFound) {
		return ErrJobNotFound
	}
	if errors.Is(err, store.ErrJobNotFound) {
		return ErrJobNotFound
	}

	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// recoveryBatchSize bounds how many interrupted jobs are fetched per page
// during startup recovery.
const recoveryBatchSize = 100

// jobServiceImpl implements the JobService interface
type jobServiceImpl struct {
	jobRepo      JobRepository
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewJobService creates a new JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(
	jobRepo JobRepository,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (JobService, error) {
	if jobRepo == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "jobRepo cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobRepo:      jobRepo,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "job_service"),
	}, nil
}

// SubmitGuideline creates a new job with pending status and emits the event
// that queues it for processing. The job row is written inside a transaction
// before the event is emitted.
func (s *jobServiceImpl) SubmitGuideline(
	ctx context.Context,
	guidelineText string,
) (*domain.Job, error) {
	job, err := domain.NewJob(guidelineText)
	if err != nil {
		s.logger.Warn("rejected guideline submission", "error", err)
		return nil, newJobServiceError("submit_guideline", "invalid guideline text", err)
	}

	err = store.RunInTransaction(ctx, s.jobRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.jobRepo.WithTx(tx)
		if err := txRepo.Create(ctx, job); err != nil {
			s.logger.Error("failed to create job in transaction",
				"error", err,
				"job_id", job.ID)
			return newJobServiceError("submit_guideline", "failed to save job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job created with pending status", "job_id", job.ID)

	if err := s.enqueueJob(ctx, job.ID); err != nil {
		return nil, err
	}

	return job, nil
}

// enqueueJob emits the processing event for a job identifier.
func (s *jobServiceImpl) enqueueJob(ctx context.Context, jobID uuid.UUID) error {
	event, err := task.NewJobQueuedEvent(jobID)
	if err != nil {
		s.logger.Error("failed to create job queued event",
			"error", err,
			"job_id", jobID)
		return newJobServiceError("enqueue_job", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit job queued event",
			"error", err,
			"job_id", jobID,
			"event_id", event.ID)
		return newJobServiceError("enqueue_job", "failed to emit event", err)
	}

	s.logger.Info("job queued for processing",
		"job_id", jobID,
		"event_id", event.ID)
	return nil
}

// GetJob retrieves a job by its ID
func (s *jobServiceImpl) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			s.logger.Debug("job not found", "job_id", jobID)
			return nil, ErrJobNotFound
		}
		s.logger.Error("failed to retrieve job",
			"error", err,
			"job_id", jobID)
		return nil, newJobServiceError("get_job", "failed to retrieve job", err)
	}

	return job, nil
}

// MarkJobProcessing transitions a job into the processing state.
func (s *jobServiceImpl) MarkJobProcessing(
	ctx context.Context,
	jobID uuid.UUID,
) (*domain.Job, error) {
	return s.applyTransition(ctx, jobID, "mark_job_processing", func(job *domain.Job) error {
		return job.MarkProcessing()
	})
}

// CompleteJob records the pipeline outputs and marks the job completed.
func (s *jobServiceImpl) CompleteJob(
	ctx context.Context,
	jobID uuid.UUID,
	summary string,
	checklist domain.Checklist,
) (*domain.Job, error) {
	return s.applyTransition(ctx, jobID, "complete_job", func(job *domain.Job) error {
		return job.Complete(summary, checklist)
	})
}

// FailJob marks the job failed and records the error message.
func (s *jobServiceImpl) FailJob(
	ctx context.Context,
	jobID uuid.UUID,
	message string,
) (*domain.Job, error) {
	return s.applyTransition(ctx, jobID, "fail_job", func(job *domain.Job) error {
		return job.Fail(message)
	})
}

// applyTransition loads a job inside a transaction, applies the given
// domain mutation, persists the result, and returns a fresh snapshot.
func (s *jobServiceImpl) applyTransition(
	ctx context.Context,
	jobID uuid.UUID,
	operation string,
	mutate func(job *domain.Job) error,
) (*domain.Job, error) {
	var updated *domain.Job

	err := store.RunInTransaction(ctx, s.jobRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.jobRepo.WithTx(tx)

		job, err := txRepo.GetByID(ctx, jobID)
		if err != nil {
			if errors.Is(err, store.ErrJobNotFound) {
				return ErrJobNotFound
			}
			return newJobServiceError(operation, "failed to retrieve job", err)
		}

		if err := mutate(job); err != nil {
			s.logger.Error("job state transition rejected",
				"error", err,
				"job_id", jobID,
				"operation", operation,
				"current_status", job.Status)
			return newJobServiceError(operation, "invalid state transition", err)
		}

		if err := txRepo.Update(ctx, job); err != nil {
			return newJobServiceError(operation, "failed to save job", err)
		}

		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job state updated",
		"job_id", jobID,
		"operation", operation,
		"status", updated.Status)
	return updated, nil
}

// RequeueInterrupted re-enqueues jobs that a previous run left in pending
// or processing state, so work queued in memory survives restarts.
func (s *jobServiceImpl) RequeueInterrupted(ctx context.Context) (int, error) {
	requeued := 0

	for _, status := range []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing} {
		offset := 0
		for {
			jobs, err := s.jobRepo.FindJobsByStatus(ctx, status, recoveryBatchSize, offset)
			if err != nil {
				return requeued, newJobServiceError(
					"requeue_interrupted",
					fmt.Sprintf("failed to list %s jobs", status),
					err,
				)
			}
			if len(jobs) == 0 {
				break
			}

			for _, job := range jobs {
				if err := s.enqueueJob(ctx, job.ID); err != nil {
					s.logger.Error("failed to requeue interrupted job",
						"error", err,
						"job_id", job.ID,
						"status", status)
					continue
				}
				requeued++
			}

			offset += len(jobs)
		}
	}

	if requeued > 0 {
		s.logger.Info("requeued interrupted jobs", "count", requeued)
	}
	return requeued, nil
}
