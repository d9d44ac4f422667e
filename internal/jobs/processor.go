package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kiranshivaraju/copyforge/internal/cache"
	"github.com/kiranshivaraju/copyforge/internal/compose"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

const jobStatusTTL = time.Hour

// jobResponse is the JSON persisted on a successful job.
type jobResponse struct {
	Content      string  `json:"content"`
	Model        string  `json:"model"`
	Tokens       int     `json:"tokens"`
	CostEstimate float64 `json:"cost_estimate"`
}

// Processor executes one generation job end to end: claim, generate, apply,
// and settle the outcome. It owns all status transitions after enqueue.
type Processor struct {
	store    store.Store
	composer *compose.Composer
	coord    *Coordinator
	retry    *RetryController
	cache    cache.Cache
	notifier Notifier
	logger   *slog.Logger
}

func NewProcessor(st store.Store, composer *compose.Composer, coord *Coordinator, retry *RetryController, ca cache.Cache, notifier Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		store:    st,
		composer: composer,
		coord:    coord,
		retry:    retry,
		cache:    ca,
		notifier: notifier,
		logger:   logger,
	}
}

// NewMux returns the asynq handler mux with the processor registered.
func NewMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeGenerate, p.Handle)
	return mux
}

// Handle is the asynq entry point. Retry decisions belong to the retry
// controller, so task errors are swallowed rather than handed back to asynq.
func (p *Processor) Handle(ctx context.Context, t *asynq.Task) error {
	var payload generatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.logger.ErrorContext(ctx, "malformed task payload", "error", err)
		return nil
	}
	if err := p.Process(ctx, payload.JobID); err != nil {
		p.logger.ErrorContext(ctx, "job processing error", "job_id", payload.JobID, "error", err)
	}
	return nil
}

// Process runs a single job. Re-delivery of an already claimed, cancelled,
// or finished job is a no-op.
func (p *Processor) Process(ctx context.Context, jobID int64) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.logger.WarnContext(ctx, "job vanished before processing", "job_id", jobID)
			return nil
		}
		return fmt.Errorf("load job %d: %w", jobID, err)
	}
	if job.Status != models.JobStatusQueued {
		return nil
	}

	claimed, err := p.store.MarkJobRunning(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job %d: %w", jobID, err)
	}
	if !claimed {
		return nil
	}
	p.cacheStatus(ctx, job.ID, models.JobStatusRunning)

	var opts EnqueueOptions
	if len(job.RequestPayload) > 0 {
		if err := json.Unmarshal(job.RequestPayload, &opts); err != nil {
			p.logger.WarnContext(ctx, "unreadable request payload, using defaults",
				"job_id", jobID, "error", err)
		}
	}

	result, genErr := p.composer.Generate(ctx, job.ProductID, job.Artifact, opts.Overrides, job.RequestedBy)
	if genErr == nil {
		genErr = p.composer.Apply(ctx, job.ProductID, job.Artifact, result.Content)
	}

	if genErr != nil {
		return p.settleFailure(ctx, job, genErr)
	}
	return p.settleSuccess(ctx, job, result)
}

func (p *Processor) settleSuccess(ctx context.Context, job *models.Job, result models.GenerationResult) error {
	response, err := json.Marshal(jobResponse{
		Content:      result.Content,
		Model:        result.Model,
		Tokens:       result.Usage.TotalTokens,
		CostEstimate: result.CostEstimate,
	})
	if err != nil {
		return fmt.Errorf("marshal job response: %w", err)
	}

	if err := p.store.CompleteJob(ctx, job.ID, response, result.Model, result.Usage.TotalTokens); err != nil {
		return fmt.Errorf("complete job %d: %w", job.ID, err)
	}
	p.transition(ctx, job, models.JobStatusSuccess)

	if job.BatchID != nil {
		if err := p.coord.Advance(ctx, *job.BatchID); err != nil {
			p.logger.ErrorContext(ctx, "failed to advance batch",
				"batch_id", *job.BatchID, "error", err)
		}
	}
	return nil
}

func (p *Processor) settleFailure(ctx context.Context, job *models.Job, genErr error) error {
	final, err := p.retry.HandleFailure(ctx, job, genErr)
	if err != nil {
		return err
	}

	if final {
		p.transition(ctx, job, models.JobStatusFailed)
		if job.BatchID != nil {
			if err := p.coord.Advance(ctx, *job.BatchID); err != nil {
				p.logger.ErrorContext(ctx, "failed to advance batch",
					"batch_id", *job.BatchID, "error", err)
			}
		}
	} else {
		p.transition(ctx, job, models.JobStatusQueued)
	}
	return nil
}

// transition settles the run: exactly one notification fires per processing
// run, and it carries the job snapshot read when processing began, so
// job.Status still holds the status observed before the claim.
func (p *Processor) transition(ctx context.Context, job *models.Job, newStatus string) {
	p.notifier.JobStatusChanged(ctx, job, newStatus)
	p.cacheStatus(ctx, job.ID, newStatus)
}

func (p *Processor) cacheStatus(ctx context.Context, jobID int64, status string) {
	if err := p.cache.SetJobStatus(ctx, jobID, status, jobStatusTTL); err != nil {
		p.logger.WarnContext(ctx, "failed to cache job status",
			"job_id", jobID, "error", err)
	}
}
