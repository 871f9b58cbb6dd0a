package sqlitestore

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*SQLiteJobStore, *sql.DB) {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return NewSQLiteJobStore(db, testLogger()), db
}

func newPendingJob(t *testing.T) *domain.Job {
	t.Helper()
	job, err := domain.NewJob("Keep dependencies patched within 30 days.")
	require.NoError(t, err)
	return job
}

func TestCreateAndGetByID(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)
	ctx := context.Background()
	job := newPendingJob(t)

	require.NoError(t, jobStore.Create(ctx, job))

	fetched, err := jobStore.GetByID(ctx, job.ID)
	require.NoError(t, err)

	assert.Equal(t, job.ID, fetched.ID)
	assert.Equal(t, domain.JobStatusPending, fetched.Status)
	assert.Equal(t, job.GuidelineText, fetched.GuidelineText)
	assert.Empty(t, fetched.Summary)
	assert.Nil(t, fetched.Checklist)
	assert.Empty(t, fetched.ErrorMessage)
	// Timestamps survive the Unix millisecond round trip.
	assert.WithinDuration(t, job.CreatedAt, fetched.CreatedAt, time.Millisecond)
	assert.WithinDuration(t, job.UpdatedAt, fetched.UpdatedAt, time.Millisecond)
}

func TestCreateRejectsInvalidJob(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)
	job := newPendingJob(t)
	job.GuidelineText = "   "

	err := jobStore.Create(context.Background(), job)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)

	_, err := jobStore.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrJobNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestUpdatePersistsResults(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)
	ctx := context.Background()
	job := newPendingJob(t)
	require.NoError(t, jobStore.Create(ctx, job))

	require.NoError(t, job.MarkProcessing())
	require.NoError(t, jobStore.Update(ctx, job))

	checklist := domain.Checklist{
		{"item": "Audit dependencies", "description": "Monthly", "priority": float64(1)},
		{"item": "Patch criticals", "description": "Within 48 hours"},
	}
	require.NoError(t, job.Complete("the summary", checklist))
	require.NoError(t, jobStore.Update(ctx, job))

	fetched, err := jobStore.GetByID(ctx, job.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, fetched.Status)
	assert.Equal(t, "the summary", fetched.Summary)
	require.Len(t, fetched.Checklist, 2)
	assert.Equal(t, "Audit dependencies", fetched.Checklist[0]["item"])
	assert.Equal(t, float64(1), fetched.Checklist[0]["priority"])
	assert.Equal(t, "Within 48 hours", fetched.Checklist[1]["description"])
}

func TestUpdatePersistsFailure(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)
	ctx := context.Background()
	job := newPendingJob(t)
	require.NoError(t, jobStore.Create(ctx, job))

	require.NoError(t, job.MarkProcessing())
	require.NoError(t, job.Fail("provider timeout"))
	require.NoError(t, jobStore.Update(ctx, job))

	fetched, err := jobStore.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, fetched.Status)
	assert.Equal(t, "provider timeout", fetched.ErrorMessage)
}

func TestUpdateNotFound(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)
	job := newPendingJob(t)

	err := jobStore.Update(context.Background(), job)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestFindJobsByStatus(t *testing.T) {
	t.Parallel()

	jobStore, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, jobStore.Create(ctx, newPendingJob(t)))
	}

	processing := newPendingJob(t)
	require.NoError(t, jobStore.Create(ctx, processing))
	require.NoError(t, processing.MarkProcessing())
	require.NoError(t, jobStore.Update(ctx, processing))

	pending, err := jobStore.FindJobsByStatus(ctx, domain.JobStatusPending, 10, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	inFlight, err := jobStore.FindJobsByStatus(ctx, domain.JobStatusProcessing, 10, 0)
	require.NoError(t, err)
	require.Len(t, inFlight, 1)
	assert.Equal(t, processing.ID, inFlight[0].ID)

	completed, err := jobStore.FindJobsByStatus(ctx, domain.JobStatusCompleted, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, completed)

	// Pagination walks the full set.
	page1, err := jobStore.FindJobsByStatus(ctx, domain.JobStatusPending, 2, 0)
	require.NoError(t, err)
	page2, err := jobStore.FindJobsByStatus(ctx, domain.JobStatusPending, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.Len(t, page2, 1)
}

func TestWithTxCommitAndRollback(t *testing.T) {
	t.Parallel()

	jobStore, db := newTestStore(t)
	ctx := context.Background()

	committed := newPendingJob(t)
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return jobStore.WithTx(tx).Create(ctx, committed)
	})
	require.NoError(t, err)

	_, err = jobStore.GetByID(ctx, committed.ID)
	assert.NoError(t, err)

	rolledBack := newPendingJob(t)
	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := jobStore.WithTx(tx).Create(ctx, rolledBack); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = jobStore.GetByID(ctx, rolledBack.ID)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}
