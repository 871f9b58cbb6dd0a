package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/generation"
	"github.com/guidelinehq/guideline-api/internal/store"
)

// Common errors
var (
	ErrNilJobService = errors.New("job service cannot be nil")
	ErrNilGenerator  = errors.New("generator cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyJobID    = errors.New("job ID cannot be empty")
)

// JobService defines the job operations the processing task needs. The
// service layer owns all status transitions and persistence details.
type JobService interface {
	// GetJob retrieves a job by its ID
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// MarkJobProcessing transitions a job into the processing state,
	// clearing any error message from a prior failed attempt.
	MarkJobProcessing(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// CompleteJob records the pipeline outputs and marks the job completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID, summary string, checklist domain.Checklist) (*domain.Job, error)

	// FailJob marks the job failed and records the error message.
	FailJob(ctx context.Context, jobID uuid.UUID, message string) (*domain.Job, error)
}

// guidelinePayload represents the serialized data carried by the task
type guidelinePayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// GuidelineProcessingTask implements the Task interface for driving one job
// through the two-stage generation pipeline.
type GuidelineProcessingTask struct {
	id         uuid.UUID
	jobID      uuid.UUID
	jobService JobService
	generator  generation.Generator
	logger     *slog.Logger
}

// NewGuidelineProcessingTask creates a new guideline processing task
func NewGuidelineProcessingTask(
	jobID uuid.UUID,
	jobService JobService,
	generator generation.Generator,
	logger *slog.Logger,
) (*GuidelineProcessingTask, error) {
	if jobService == nil {
		return nil, ErrNilJobService
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if jobID == uuid.Nil {
		return nil, ErrEmptyJobID
	}

	return &GuidelineProcessingTask{
		id:         uuid.New(),
		jobID:      jobID,
		jobService: jobService,
		generator:  generator,
		logger:     logger.With("task_type", TaskTypeGuidelineProcessing, "job_id", jobID),
	}, nil
}

// ID returns the task's unique identifier
func (t *GuidelineProcessingTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *GuidelineProcessingTask) Type() string {
	return TaskTypeGuidelineProcessing
}

// Payload returns the task data as a byte slice
func (t *GuidelineProcessingTask) Payload() []byte {
	data, err := json.Marshal(guidelinePayload{JobID: t.jobID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Execute drives one processing attempt through the state machine: load the
// job, mark it processing, run both generation stages, and persist either
// the results or the failure. Generation failures are recorded on the job
// and returned as retryable errors; an unresolvable job identifier is
// reported as ErrNonRetryable since waiting cannot fix it.
func (t *GuidelineProcessingTask) Execute(ctx context.Context) error {
	t.logger.Info("starting guideline processing task")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Load the job. An unknown identifier is fatal.
	job, err := t.jobService.GetJob(ctx, t.jobID)
	if err != nil {
		if store.IsNotFoundError(err) {
			t.logger.Error("job not found, cannot process", "error", err)
			return fmt.Errorf("%w: job %s does not exist", ErrNonRetryable, t.jobID)
		}
		t.logger.Error("failed to load job", "error", err)
		return fmt.Errorf("failed to load job: %w", err)
	}

	// Deliveries are at-least-once; a job that already completed is left
	// untouched so terminal results never mutate.
	if job.Status == domain.JobStatusCompleted {
		t.logger.Info("job already completed, skipping redelivery")
		return nil
	}

	// 2. Mark the job as processing.
	if _, err := t.jobService.MarkJobProcessing(ctx, t.jobID); err != nil {
		t.logger.Error("failed to mark job as processing", "error", err)
		return fmt.Errorf("failed to mark job as processing: %w", err)
	}

	// 3. Stage one: summarize the guideline text.
	t.logger.Info("summarizing guideline text")
	summary, err := t.generator.Summarize(ctx, job.GuidelineText)
	if err != nil {
		t.recordFailure(ctx, err)
		return fmt.Errorf("summarize stage failed: %w", err)
	}

	// 4. Stage two: derive the checklist from the summary.
	t.logger.Info("generating checklist from summary")
	checklist, err := t.generator.GenerateChecklist(ctx, summary)
	if err != nil {
		t.recordFailure(ctx, err)
		return fmt.Errorf("checklist stage failed: %w", err)
	}

	// 5. Persist results and mark the job completed.
	if _, err := t.jobService.CompleteJob(ctx, t.jobID, summary, checklist); err != nil {
		t.recordFailure(ctx, err)
		return fmt.Errorf("failed to record job results: %w", err)
	}

	t.logger.Info("guideline processing task completed successfully",
		"summary_length", len(summary),
		"checklist_items", len(checklist))
	return nil
}

// recordFailure persists the failed status and error message so the status
// endpoint reflects the outcome between retry attempts.
func (t *GuidelineProcessingTask) recordFailure(ctx context.Context, cause error) {
	if _, err := t.jobService.FailJob(ctx, t.jobID, cause.Error()); err != nil {
		t.logger.Error("failed to record job failure",
			"error", err,
			"cause", cause)
	}
}
