package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// MaxAttempts bounds how many times a single delivery is executed,
	// counting the first attempt. Once reached, the task is reported to
	// the error handler and never redelivered.
	MaxAttempts int

	// RetryDelay is the fixed backoff applied before a failed task is
	// redelivered to a worker.
	RetryDelay time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		MaxAttempts: 3,
		RetryDelay:  60 * time.Second,
	}
}

// Runner manages background task processing: a pool of workers consuming a
// shared queue, plus the bounded retry policy applied when a task fails.
// Attempt counters are kept per delivered task instance, so a fresh Submit
// of work for the same job starts a new retry budget.
type Runner struct {
	queue      *TaskQueue
	cfg        RunnerConfig
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	attempts   map[uuid.UUID]int
	logger     *slog.Logger
	errHandler func(task Task, err error)
}

// NewRunner creates a new Runner around its own task queue.
func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		queue:      NewTaskQueue(cfg.QueueSize, logger),
		cfg:        cfg,
		ctx:        ctx,
		cancelFunc: cancel,
		attempts:   make(map[uuid.UUID]int),
		logger:     logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed permanently",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom handler invoked once per task
// delivery whose failure is permanent (non-retryable or bound exhausted).
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit hands a task to the asynchronous execution substrate. It blocks
// only while the queue buffer is full and returns as soon as the task is
// accepted; execution happens later on a worker.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	return r.queue.EnqueueWait(ctx, task)
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
}

// Stop gracefully shuts down the runner: workers finish their in-flight
// task, pending retry timers are abandoned, and the queue is closed.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
}

// worker consumes tasks from the queue until shutdown.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-r.queue.GetChannel():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}

			r.processTask(task, id)
		}
	}
}

// processTask executes a single task delivery and applies the retry policy
// to its outcome.
func (r *Runner) processTask(task Task, workerID int) {
	ctx := context.Background()
	attempt := r.beginAttempt(task.ID())
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
		"attempt", attempt,
		"max_attempts", r.cfg.MaxAttempts,
	)

	logger.Info("processing task")

	err := task.Execute(ctx)
	if err == nil {
		logger.Info("task completed successfully")
		r.clearAttempts(task.ID())
		return
	}

	logger.Error("task execution failed", "error", err)

	if errors.Is(err, ErrNonRetryable) {
		logger.Warn("failure is non-retryable, giving up")
		r.clearAttempts(task.ID())
		r.errHandler(task, err)
		return
	}

	if attempt >= r.cfg.MaxAttempts {
		logger.Error("retry attempts exhausted, task failed permanently")
		r.clearAttempts(task.ID())
		r.errHandler(task, err)
		return
	}

	r.scheduleRetry(task, logger)
}

// scheduleRetry redelivers the task after the configured backoff. The
// timer is abandoned when the runner shuts down first.
func (r *Runner) scheduleRetry(task Task, logger *slog.Logger) {
	logger.Info("scheduling retry", "retry_delay", r.cfg.RetryDelay)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case <-time.After(r.cfg.RetryDelay):
			if err := r.queue.EnqueueWait(r.ctx, task); err != nil {
				logger.Error("failed to requeue task for retry", "error", err)
			}
		case <-r.ctx.Done():
			logger.Debug("runner stopped, abandoning scheduled retry")
		}
	}()
}

// beginAttempt increments and returns the 1-based attempt number for the
// given task delivery.
func (r *Runner) beginAttempt(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[id]++
	return r.attempts[id]
}

// clearAttempts drops the attempt counter once a delivery reaches a
// terminal outcome.
func (r *Runner) clearAttempts(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, id)
}
