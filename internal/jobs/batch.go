package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/cache"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

const (
	// primeWindow is how many jobs of a fresh batch are scheduled up front.
	primeWindow = 3
	// advanceWindow is how many further jobs are scheduled each time a
	// batch member reaches a terminal status.
	advanceWindow = 2

	batchStatusTTL = 5 * time.Second
)

// EnqueueOptions is the request payload persisted with each job. The worker
// replays it when the job runs.
type EnqueueOptions struct {
	Overrides models.ContextOverrides `json:"overrides"`
}

// BatchResult summarizes an EnqueueBatch call.
type BatchResult struct {
	BatchID string  `json:"batch_id"`
	JobIDs  []int64 `json:"job_ids"`
	Skipped int     `json:"skipped"`
}

// Coordinator creates jobs, deduplicates against in-flight work, and drives
// batches through the scheduling window.
type Coordinator struct {
	store     store.Store
	scheduler Scheduler
	cache     cache.Cache
	logger    *slog.Logger
}

func NewCoordinator(st store.Store, sched Scheduler, ca cache.Cache, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: st, scheduler: sched, cache: ca, logger: logger}
}

// EnqueueSingle creates and immediately schedules one job. If an active job
// already exists for the same product and artifact, that job's id is returned
// and created is false.
func (c *Coordinator) EnqueueSingle(ctx context.Context, productID int64, artifact string, opts EnqueueOptions, requestedBy *uuid.UUID) (jobID int64, created bool, err error) {
	existingID, found, err := c.store.FindActiveJob(ctx, productID, artifact)
	if err != nil {
		return 0, false, fmt.Errorf("check active job: %w", err)
	}
	if found {
		return existingID, false, nil
	}

	job, err := c.createJob(ctx, productID, artifact, opts, nil, requestedBy)
	if err != nil {
		return 0, false, err
	}
	if err := c.scheduler.Schedule(ctx, job.ID, 0); err != nil {
		return 0, false, fmt.Errorf("schedule job %d: %w", job.ID, err)
	}
	return job.ID, true, nil
}

// EnqueueBatch creates one job per product and artifact under a shared batch
// id and primes the first scheduling window. Pairs with an active job are
// skipped rather than duplicated.
func (c *Coordinator) EnqueueBatch(ctx context.Context, productIDs []int64, artifacts []string, opts EnqueueOptions, requestedBy *uuid.UUID) (*BatchResult, error) {
	if len(productIDs) == 0 || len(artifacts) == 0 {
		return nil, fmt.Errorf("batch requires at least one product and one artifact")
	}
	// Validate up front so a bad artifact cannot leave earlier pairs inserted
	// as queued jobs that no window will ever schedule.
	for _, artifact := range artifacts {
		if !models.ValidArtifact(artifact) {
			return nil, fmt.Errorf("unsupported artifact %q", artifact)
		}
	}

	batchID := uuid.NewString()
	result := &BatchResult{BatchID: batchID}

	for _, productID := range productIDs {
		for _, artifact := range artifacts {
			_, found, err := c.store.FindActiveJob(ctx, productID, artifact)
			if err != nil {
				return nil, fmt.Errorf("check active job: %w", err)
			}
			if found {
				result.Skipped++
				continue
			}
			job, err := c.createJob(ctx, productID, artifact, opts, &batchID, requestedBy)
			if err != nil {
				return nil, err
			}
			result.JobIDs = append(result.JobIDs, job.ID)
		}
	}

	if len(result.JobIDs) == 0 {
		return result, nil
	}

	if err := c.scheduleNext(ctx, batchID, primeWindow); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "batch enqueued",
		"batch_id", batchID, "jobs", len(result.JobIDs), "skipped", result.Skipped)
	return result, nil
}

// Advance schedules the next window of queued jobs in the batch. Called by
// the processor whenever a batch member reaches a terminal status. Jobs that
// were already handed to the runner but are still queued may be scheduled
// again; the processor's run guard makes the duplicate delivery a no-op.
func (c *Coordinator) Advance(ctx context.Context, batchID string) error {
	if err := c.scheduleNext(ctx, batchID, advanceWindow); err != nil {
		return err
	}
	return c.cache.Delete(ctx, cache.BatchStatusKey(batchID))
}

// Status aggregates the batch's jobs into a progress view. Results are
// cached briefly since clients poll this.
func (c *Coordinator) Status(ctx context.Context, batchID string) (*models.BatchStatus, error) {
	if raw, ok, err := c.cache.Get(ctx, cache.BatchStatusKey(batchID)); err == nil && ok {
		var cached models.BatchStatus
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	counts, err := c.store.CountJobsByStatus(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("count batch jobs: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil, store.ErrNotFound
	}

	completed := counts[models.JobStatusSuccess] + counts[models.JobStatusFailed]
	status := &models.BatchStatus{
		BatchID:      batchID,
		Total:        total,
		Completed:    completed,
		Progress:     int(math.Round(100 * float64(completed) / float64(total))),
		StatusCounts: counts,
		IsComplete:   counts[models.JobStatusQueued]+counts[models.JobStatusRunning] == 0,
	}

	if raw, err := json.Marshal(status); err == nil {
		_ = c.cache.Set(ctx, cache.BatchStatusKey(batchID), raw, batchStatusTTL)
	}
	return status, nil
}

// Cancel marks every still-queued job in the batch cancelled. Running jobs
// finish on their own; terminal jobs are untouched.
func (c *Coordinator) Cancel(ctx context.Context, batchID string) (int64, error) {
	n, err := c.store.CancelQueuedInBatch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("cancel batch %s: %w", batchID, err)
	}
	if err := c.cache.Delete(ctx, cache.BatchStatusKey(batchID)); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate batch status cache",
			"batch_id", batchID, "error", err)
	}
	c.logger.InfoContext(ctx, "batch cancelled", "batch_id", batchID, "cancelled_jobs", n)
	return n, nil
}

func (c *Coordinator) createJob(ctx context.Context, productID int64, artifact string, opts EnqueueOptions, batchID *string, requestedBy *uuid.UUID) (*models.Job, error) {
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	job := &models.Job{
		ProductID:      productID,
		Artifact:       artifact,
		Status:         models.JobStatusQueued,
		RequestPayload: payload,
		BatchID:        batchID,
		RequestedBy:    requestedBy,
		CreatedAt:      time.Now().UTC(),
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (c *Coordinator) scheduleNext(ctx context.Context, batchID string, window int) error {
	ids, err := c.store.NextQueuedInBatch(ctx, batchID, window)
	if err != nil {
		return fmt.Errorf("load next queued jobs: %w", err)
	}
	for _, id := range ids {
		if err := c.scheduler.Schedule(ctx, id, 0); err != nil {
			return fmt.Errorf("schedule job %d: %w", id, err)
		}
	}
	return nil
}
