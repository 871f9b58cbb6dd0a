package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a buffered in-memory queue of tasks awaiting a worker.
type TaskQueue struct {
	tasks  chan Task
	logger *slog.Logger
	closed bool
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
		closed: false,
	}
}

// Enqueue adds a task to the queue without blocking.
// Returns ErrQueueFull when the buffer is at capacity, or ErrQueueClosed.
func (q *TaskQueue) Enqueue(task Task) error {
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logger.Debug("task enqueued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// EnqueueWait adds a task to the queue, blocking until buffer space is
// available or the context is cancelled. Submission is therefore never
// rejected for backlog depth alone.
func (q *TaskQueue) EnqueueWait(ctx context.Context, task Task) error {
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logger.Debug("task enqueued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the task queue, preventing further task submission.
// The caller must guarantee no concurrent senders remain.
func (q *TaskQueue) Close() {
	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// GetChannel returns a read-only channel for consuming tasks
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}
