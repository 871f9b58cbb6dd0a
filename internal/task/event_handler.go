package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/events"
)

// TaskFactory creates tasks for job identifiers. Implemented by
// GuidelineTaskFactory; declared as an interface for testability.
type TaskFactory interface {
	CreateTask(jobID uuid.UUID) (Task, error)
}

// TaskSubmitter accepts tasks for asynchronous execution. Implemented by
// Runner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler turns TaskRequestEvents into queued tasks. It is
// registered with the event emitter for TaskTypeGuidelineProcessing at
// startup, forming the explicit task-name-to-handler mapping.
type TaskFactoryEventHandler struct {
	factory   TaskFactory
	submitter TaskSubmitter
	logger    *slog.Logger
}

// NewTaskFactoryEventHandler creates an event handler that uses the given
// factory to create tasks and submits them to the provided submitter.
func NewTaskFactoryEventHandler(
	factory TaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory:   factory,
		submitter: submitter,
		logger:    logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent extracts the job identifier from the event payload, creates
// the corresponding task, and submits it for execution.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	var payload guidelinePayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal event payload",
			"error", err,
			"event_id", event.ID)
		return fmt.Errorf("failed to unmarshal event payload: %w", err)
	}

	if payload.JobID == uuid.Nil {
		h.logger.Error("event payload carries no job ID", "event_id", event.ID)
		return ErrEmptyJobID
	}

	task, err := h.factory.CreateTask(payload.JobID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"job_id", payload.JobID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"job_id", payload.JobID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted",
		"task_id", task.ID(),
		"job_id", payload.JobID,
		"event_id", event.ID)
	return nil
}

// NewJobQueuedEvent builds the TaskRequestEvent emitted by the submission
// path for a newly created job.
func NewJobQueuedEvent(jobID uuid.UUID) (*events.TaskRequestEvent, error) {
	return events.NewTaskRequestEvent(TaskTypeGuidelineProcessing, guidelinePayload{JobID: jobID})
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
