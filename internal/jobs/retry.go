package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// MaxRetries is the number of re-attempts a job gets after its first failure.
const MaxRetries = 3

// retryDelays[n-1] is the backoff before re-attempt n. Counts beyond the
// table reuse the last entry.
var retryDelays = []time.Duration{30 * time.Second, 120 * time.Second, 600 * time.Second}

// RetryDelay returns the backoff before the given re-attempt (1-based).
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retryDelays) {
		return retryDelays[len(retryDelays)-1]
	}
	return retryDelays[attempt-1]
}

// RetryController decides what happens to a job after a failed attempt.
// All failures are treated alike: provider outages, timeouts, and invalid
// responses all consume a retry.
type RetryController struct {
	store     store.Store
	scheduler Scheduler
	logger    *slog.Logger
}

func NewRetryController(st store.Store, sched Scheduler, logger *slog.Logger) *RetryController {
	return &RetryController{store: st, scheduler: sched, logger: logger}
}

// HandleFailure requeues the job with backoff, or fails it permanently once
// the retry budget is spent. The returned bool reports whether the job
// reached a terminal state.
func (r *RetryController) HandleFailure(ctx context.Context, job *models.Job, genErr error) (bool, error) {
	attempt := job.RetryCount + 1
	if attempt > MaxRetries {
		if err := r.store.FailJob(ctx, job.ID, genErr.Error()); err != nil {
			return false, fmt.Errorf("fail job %d: %w", job.ID, err)
		}
		r.logger.WarnContext(ctx, "job failed permanently",
			"job_id", job.ID, "retry_count", job.RetryCount, "error", genErr)
		return true, nil
	}

	if err := r.store.RequeueJob(ctx, job.ID, attempt, genErr.Error()); err != nil {
		return false, fmt.Errorf("requeue job %d: %w", job.ID, err)
	}

	delay := RetryDelay(attempt)
	if err := r.scheduler.Schedule(ctx, job.ID, delay); err != nil {
		return false, fmt.Errorf("schedule retry for job %d: %w", job.ID, err)
	}

	r.logger.InfoContext(ctx, "job requeued for retry",
		"job_id", job.ID, "attempt", attempt, "delay", delay, "error", genErr)
	return false, nil
}
