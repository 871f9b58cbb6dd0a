package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Task type constants
const (
	// TaskTypeGuidelineProcessing identifies the two-stage guideline
	// pipeline task (summarize, then derive a checklist).
	TaskTypeGuidelineProcessing = "guideline_processing"
)

// ErrNonRetryable marks task failures that redelivery cannot fix, such as a
// job identifier that does not resolve to a stored job. The runner reports
// these through its error handler and schedules no retry.
var ErrNonRetryable = errors.New("non-retryable task failure")

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier. The runner keys its
	// per-delivery attempt counter on this value.
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel,
// allowing workers to consume tasks without the ability to enqueue.
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}
