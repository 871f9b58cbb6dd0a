package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/events"
	"github.com/guidelinehq/guideline-api/internal/platform/sqlitestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingEmitter captures emitted events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) emitted() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.TaskRequestEvent(nil), e.events...)
}

// newTestService builds a JobService over an in-memory SQLite store.
func newTestService(t *testing.T) (JobService, *recordingEmitter) {
	t.Helper()

	db, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	logger := testLogger()
	jobStore := sqlitestore.NewSQLiteJobStore(db, logger)
	emitter := &recordingEmitter{}

	svc, err := NewJobService(NewJobRepositoryAdapter(jobStore, db), emitter, logger)
	require.NoError(t, err)

	return svc, emitter
}

func TestNewJobServiceValidation(t *testing.T) {
	t.Parallel()

	_, err := NewJobService(nil, &recordingEmitter{}, testLogger())
	assert.Error(t, err)

	db, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewJobRepositoryAdapter(sqlitestore.NewSQLiteJobStore(db, testLogger()), db)

	_, err = NewJobService(repo, nil, testLogger())
	assert.Error(t, err)

	svc, err := NewJobService(repo, &recordingEmitter{}, nil)
	require.NoError(t, err, "nil logger falls back to the default")
	assert.NotNil(t, svc)
}

func TestSubmitGuidelineCreatesPendingJobAndEmitsEvent(t *testing.T) {
	t.Parallel()

	svc, emitter := newTestService(t)
	ctx := context.Background()

	job, err := svc.SubmitGuideline(ctx, "  Deployment guidelines body.  ")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, "Deployment guidelines body.", job.GuidelineText)

	// The job is durable and readable right away.
	fetched, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, fetched.Status)
	assert.Nil(t, fetched.Result())

	// Exactly one queue event referencing the new job.
	emitted := emitter.emitted()
	require.Len(t, emitted, 1)

	var payload struct {
		JobID uuid.UUID `json:"job_id"`
	}
	require.NoError(t, emitted[0].UnmarshalPayload(&payload))
	assert.Equal(t, job.ID, payload.JobID)
}

func TestSubmitGuidelineRejectsInvalidText(t *testing.T) {
	t.Parallel()

	svc, emitter := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitGuideline(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyGuidelineText)

	_, err = svc.SubmitGuideline(ctx, strings.Repeat("x", domain.MaxGuidelineTextLength+1))
	assert.ErrorIs(t, err, domain.ErrGuidelineTextTooLong)

	assert.Empty(t, emitter.emitted(), "rejected submissions emit nothing")
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobLifecycleTransitions(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.SubmitGuideline(ctx, "Guideline body.")
	require.NoError(t, err)

	processing, err := svc.MarkJobProcessing(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, processing.Status)

	checklist := domain.Checklist{{"item": "Check backups", "description": "Daily"}}
	completed, err := svc.CompleteJob(ctx, job.ID, "the summary", checklist)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, completed.Status)

	// Results round-trip through storage.
	fetched, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	result := fetched.Result()
	require.NotNil(t, result)
	assert.Equal(t, "the summary", result.Summary)
	require.Len(t, result.Checklist, 1)
	assert.Equal(t, "Check backups", result.Checklist[0]["item"])
}

func TestFailJobRecordsErrorMessage(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.SubmitGuideline(ctx, "Guideline body.")
	require.NoError(t, err)

	_, err = svc.MarkJobProcessing(ctx, job.ID)
	require.NoError(t, err)

	failed, err := svc.FailJob(ctx, job.ID, "provider timeout")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, failed.Status)
	assert.Equal(t, "provider timeout", failed.ErrorMessage)

	// A retry clears the recorded error.
	retried, err := svc.MarkJobProcessing(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, retried.Status)
	assert.Empty(t, retried.ErrorMessage)
}

func TestInvalidTransitionIsRejected(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.SubmitGuideline(ctx, "Guideline body.")
	require.NoError(t, err)

	// Pending jobs cannot complete without passing through processing.
	_, err = svc.CompleteJob(ctx, job.ID, "summary", domain.Checklist{{"item": "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Completed jobs are immutable.
	_, err = svc.MarkJobProcessing(ctx, job.ID)
	require.NoError(t, err)
	_, err = svc.CompleteJob(ctx, job.ID, "summary", domain.Checklist{{"item": "x"}})
	require.NoError(t, err)

	_, err = svc.FailJob(ctx, job.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	fetched, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, fetched.Status)
}

func TestTransitionOnUnknownJobReturnsNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.MarkJobProcessing(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = svc.FailJob(ctx, uuid.New(), "boom")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRequeueInterrupted(t *testing.T) {
	t.Parallel()

	svc, emitter := newTestService(t)
	ctx := context.Background()

	pending, err := svc.SubmitGuideline(ctx, "Pending job body.")
	require.NoError(t, err)

	stuck, err := svc.SubmitGuideline(ctx, "Stuck job body.")
	require.NoError(t, err)
	_, err = svc.MarkJobProcessing(ctx, stuck.ID)
	require.NoError(t, err)

	done, err := svc.SubmitGuideline(ctx, "Finished job body.")
	require.NoError(t, err)
	_, err = svc.MarkJobProcessing(ctx, done.ID)
	require.NoError(t, err)
	_, err = svc.CompleteJob(ctx, done.ID, "summary", domain.Checklist{{"item": "x"}})
	require.NoError(t, err)

	before := len(emitter.emitted())

	count, err := svc.RequeueInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "pending and processing jobs are requeued, completed ones are not")

	requeued := emitter.emitted()[before:]
	ids := make(map[uuid.UUID]bool)
	for _, event := range requeued {
		var payload struct {
			JobID uuid.UUID `json:"job_id"`
		}
		require.NoError(t, event.UnmarshalPayload(&payload))
		ids[payload.JobID] = true
	}
	assert.True(t, ids[pending.ID])
	assert.True(t, ids[stuck.ID])
	assert.False(t, ids[done.ID])
}
