package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/copyforge/internal/ai/mock"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

func TestEnqueueSingleDeduplicates(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(7))
	ctx := context.Background()

	first, created, err := p.coord.EnqueueSingle(ctx, 7, models.ArtifactTitle, EnqueueOptions{}, nil)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := p.coord.EnqueueSingle(ctx, 7, models.ArtifactTitle, EnqueueOptions{}, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	// A different artifact on the same product is new work.
	third, created, err := p.coord.EnqueueSingle(ctx, 7, models.ArtifactFAQ, EnqueueOptions{}, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first, third)
}

func TestEnqueueBatchPrimesFirstWindow(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(1))
	p.store.addProduct(testProduct(2))
	ctx := context.Background()

	result, err := p.coord.EnqueueBatch(ctx, []int64{1, 2},
		[]string{models.ArtifactTitle, models.ArtifactShortDescription}, EnqueueOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 4)
	assert.Zero(t, result.Skipped)
	assert.NotEmpty(t, result.BatchID)

	calls := p.sched.scheduled()
	require.Len(t, calls, primeWindow, "only the first window is scheduled up front")
	for _, call := range calls {
		assert.Equal(t, time.Duration(0), call.Delay)
	}
}

func TestEnqueueBatchSkipsActiveDuplicates(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(1))
	p.store.addProduct(testProduct(2))
	ctx := context.Background()

	_, created, err := p.coord.EnqueueSingle(ctx, 1, models.ArtifactTitle, EnqueueOptions{}, nil)
	require.NoError(t, err)
	require.True(t, created)

	result, err := p.coord.EnqueueBatch(ctx, []int64{1, 2}, []string{models.ArtifactTitle}, EnqueueOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, result.JobIDs, 1)
	assert.Equal(t, 1, result.Skipped)
}

func TestEnqueueBatchRejectsUnknownArtifact(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	_, err := p.coord.EnqueueBatch(context.Background(), []int64{1}, []string{"haiku"}, EnqueueOptions{}, nil)
	require.Error(t, err)

	_, err = p.coord.EnqueueBatch(context.Background(), nil, []string{models.ArtifactTitle}, EnqueueOptions{}, nil)
	require.Error(t, err)
}

func TestEnqueueBatchUnknownArtifactCreatesNoJobs(t *testing.T) {
	// A bad artifact anywhere in the list rejects the whole batch before any
	// job row is written; otherwise the valid pairs ahead of it would sit
	// queued with no window ever scheduling them.
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(1))
	ctx := context.Background()

	_, err := p.coord.EnqueueBatch(ctx, []int64{1},
		[]string{models.ArtifactTitle, models.ArtifactFAQ, "haiku"}, EnqueueOptions{}, nil)
	require.Error(t, err)

	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	assert.Empty(t, p.store.jobs)
	assert.Empty(t, p.sched.scheduled())
}

func TestBatchRunsToCompletion(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(1))
	p.store.addProduct(testProduct(2))
	ctx := context.Background()

	result, err := p.coord.EnqueueBatch(ctx, []int64{1, 2},
		[]string{models.ArtifactTitle, models.ArtifactSEODescription}, EnqueueOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 4)

	// Drain scheduler deliveries the way the runner would. Completions
	// schedule further windows; duplicate deliveries are no-ops.
	for i := 0; i < len(p.sched.scheduled()); i++ {
		call := p.sched.scheduled()[i]
		require.NoError(t, p.proc.Process(ctx, call.JobID))
	}

	status, err := p.coord.Status(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Total)
	assert.Equal(t, 4, status.Completed)
	assert.Equal(t, 100, status.Progress)
	assert.True(t, status.IsComplete)
	assert.Equal(t, 4, status.StatusCounts[models.JobStatusSuccess])

	for _, id := range result.JobIDs {
		assert.Equal(t, models.JobStatusSuccess, p.store.job(id).Status)
	}
}

func TestBatchProgressIsMonotonic(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(1))
	p.store.addProduct(testProduct(2))
	ctx := context.Background()

	result, err := p.coord.EnqueueBatch(ctx, []int64{1, 2},
		[]string{models.ArtifactTitle, models.ArtifactBullets}, EnqueueOptions{}, nil)
	require.NoError(t, err)

	last := -1
	for i := 0; i < len(p.sched.scheduled()); i++ {
		call := p.sched.scheduled()[i]
		require.NoError(t, p.proc.Process(ctx, call.JobID))

		// Advance invalidates the cached view, so this read is fresh.
		status, err := p.coord.Status(ctx, result.BatchID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, status.Progress, last)
		last = status.Progress
	}
	assert.Equal(t, 100, last)
}

func TestBatchProgressCountsFailures(t *testing.T) {
	// Progress tracks finished work, successful or not.
	p := newPipeline(t, mock.NewFailingProvider(assert.AnError))
	p.store.addProduct(testProduct(1))
	ctx := context.Background()

	result, err := p.coord.EnqueueBatch(ctx, []int64{1},
		[]string{models.ArtifactTitle, models.ArtifactFAQ}, EnqueueOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 2)

	// Drive the first job through its whole retry budget.
	for i := 0; i <= MaxRetries; i++ {
		require.NoError(t, p.proc.Process(ctx, result.JobIDs[0]))
	}

	status, err := p.coord.Status(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 50, status.Progress)
	assert.False(t, status.IsComplete)
	assert.Equal(t, 1, status.StatusCounts[models.JobStatusFailed])

	job := p.store.job(result.JobIDs[0])
	require.NotNil(t, job.Error)
	assert.NotNil(t, job.FinishedAt)
}

func TestBatchStatusUnknownBatch(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	_, err := p.coord.Status(context.Background(), "no-such-batch")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBatchCancelAffectsQueuedOnly(t *testing.T) {
	p := newPipeline(t, mock.NewMockProvider())
	p.store.addProduct(testProduct(1))
	p.store.addProduct(testProduct(2))
	ctx := context.Background()

	result, err := p.coord.EnqueueBatch(ctx, []int64{1, 2},
		[]string{models.ArtifactTitle, models.ArtifactTranslations}, EnqueueOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 4)

	// Finish one job, then cancel the rest of the batch.
	require.NoError(t, p.proc.Process(ctx, result.JobIDs[0]))

	cancelled, err := p.coord.Cancel(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cancelled)

	status, err := p.coord.Status(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.StatusCounts[models.JobStatusSuccess])
	assert.Equal(t, 3, status.StatusCounts[models.JobStatusCancelled])
	assert.True(t, status.IsComplete)
	// Cancelled jobs never finished, so they do not count as completed work.
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 25, status.Progress)

	// Deliveries for cancelled jobs are dropped.
	for _, id := range result.JobIDs[1:] {
		require.NoError(t, p.proc.Process(ctx, id))
		assert.Equal(t, models.JobStatusCancelled, p.store.job(id).Status)
	}
}
