package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/testutil"
)

func newTestRepo(t *testing.T, maxRetries int) (*Repository, *bun.DB) {
	db := testutil.DB(t)
	testutil.Truncate(t, db, "sync_queue")
	cfg := &config.Config{}
	cfg.Queue.MaxRetries = maxRetries
	return NewRepository(db, cfg, testutil.Logger()), db
}

func enqueueN(t *testing.T, repo *Repository, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := repo.Enqueue(ctx, items.SourceProjects, EventTaskUpserted,
			fmt.Sprintf("task-%d", i), nil)
		require.NoError(t, err)
	}
}

// Two workers claiming from uncommitted transactions must receive disjoint
// jobs: the second claim skips rows the first still holds locked.
func TestDequeue_DisjointAcrossWorkers(t *testing.T) {
	repo, db := newTestRepo(t, 5)
	ctx := context.Background()
	enqueueN(t, repo, 10)

	tx1, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx1.Rollback()
	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx2.Rollback()

	claimedA, err := repo.WithTx(tx1).Dequeue(ctx, "worker-a", 6, nil)
	require.NoError(t, err)
	claimedB, err := repo.WithTx(tx2).Dequeue(ctx, "worker-b", 6, nil)
	require.NoError(t, err)

	assert.Len(t, claimedA, 6)
	assert.Len(t, claimedB, 4)

	seen := make(map[uuid.UUID]bool)
	for _, job := range append(claimedA, claimedB...) {
		assert.False(t, seen[job.ID], "job %s claimed twice", job.ID)
		seen[job.ID] = true
		assert.Equal(t, StatusProcessing, job.Status)
	}
}

func TestDequeue_StampsWorkerAndMaxRetries(t *testing.T) {
	repo, _ := newTestRepo(t, 3)
	ctx := context.Background()
	enqueueN(t, repo, 1)

	claimed, err := repo.Dequeue(ctx, "worker-a", 10, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NotNil(t, claimed[0].WorkerID)
	assert.Equal(t, "worker-a", *claimed[0].WorkerID)
	assert.Equal(t, 3, claimed[0].MaxRetries)
	require.NotNil(t, claimed[0].ProcessingStartedAt)
}

// forceDue clears a job's retry delay so the next dequeue sees it.
func forceDue(t *testing.T, db *bun.DB, id uuid.UUID) {
	t.Helper()
	_, err := db.NewUpdate().
		Model((*QueueItem)(nil)).
		Set("next_retry_at = now() - interval '1 second'").
		Where("id = ?", id).
		Exec(context.Background())
	require.NoError(t, err)
}

func TestMarkFailed_DeadLetterAfterMaxRetries(t *testing.T) {
	repo, db := newTestRepo(t, 2)
	ctx := context.Background()
	enqueueN(t, repo, 1)

	// First failure: back to pending with a future retry delay, so the job
	// is not due yet.
	claimed, err := repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	id := claimed[0].ID
	require.NoError(t, repo.MarkFailed(ctx, &claimed[0], "boom", true))

	notDue, err := repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	assert.Empty(t, notDue)

	job := &QueueItem{}
	require.NoError(t, db.NewSelect().Model(job).Where("q.id = ?", id).Scan(ctx))
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	require.NotNil(t, job.NextRetryAt)
	assert.True(t, job.NextRetryAt.After(time.Now()))

	// Second failure consumes the remaining budget.
	forceDue(t, db, id)
	claimed, err = repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkFailed(ctx, &claimed[0], "boom", true))

	// Third failure exceeds it: dead-letter, excluded from dequeue for good.
	forceDue(t, db, id)
	claimed, err = repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkFailed(ctx, &claimed[0], "boom", true))

	require.NoError(t, db.NewSelect().Model(job).Where("q.id = ?", id).Scan(ctx))
	assert.Equal(t, StatusDeadLetter, job.Status)

	forceDue(t, db, id)
	gone, err := repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestMarkFailed_PermanentSkipsRetries(t *testing.T) {
	repo, db := newTestRepo(t, 5)
	ctx := context.Background()
	enqueueN(t, repo, 1)

	claimed, err := repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkFailed(ctx, &claimed[0], "bad payload", false))

	job := &QueueItem{}
	require.NoError(t, db.NewSelect().Model(job).Where("q.id = ?", claimed[0].ID).Scan(ctx))
	assert.Equal(t, StatusDeadLetter, job.Status)
	assert.Nil(t, job.NextRetryAt)
}

func TestRequeueDeadLetter_RestoresRetryBudget(t *testing.T) {
	repo, db := newTestRepo(t, 5)
	ctx := context.Background()
	enqueueN(t, repo, 1)

	claimed, err := repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkFailed(ctx, &claimed[0], "boom", false))

	count, err := repo.RequeueDeadLetter(ctx, []uuid.UUID{claimed[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	job := &QueueItem{}
	require.NoError(t, db.NewSelect().Model(job).Where("q.id = ?", claimed[0].ID).Scan(ctx))
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Nil(t, job.LastError)

	reclaimed, err := repo.Dequeue(ctx, "w", 1, nil)
	require.NoError(t, err)
	assert.Len(t, reclaimed, 1)
}
