// Package jobs implements the asynchronous generation pipeline: scheduling,
// batch coordination, the worker-side processor, bounded retries, and the
// retention sweeper.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeGenerate is the asynq task type for a single generation job.
const TaskTypeGenerate = "copy:generate"

// Scheduler hands jobs to the delayed task runner. There is exactly one
// implementation wired at startup; tests substitute their own.
type Scheduler interface {
	Schedule(ctx context.Context, jobID int64, delay time.Duration) error
}

type generatePayload struct {
	JobID int64 `json:"job_id"`
}

// AsynqScheduler schedules generation tasks on a Redis-backed asynq queue.
// Task-level retries are disabled; the retry controller owns that decision.
type AsynqScheduler struct {
	client *asynq.Client
}

func NewAsynqScheduler(redisURL string) (*AsynqScheduler, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &AsynqScheduler{client: asynq.NewClient(opt)}, nil
}

func (s *AsynqScheduler) Schedule(ctx context.Context, jobID int64, delay time.Duration) error {
	payload, err := json.Marshal(generatePayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}

	opts := []asynq.Option{asynq.MaxRetry(0)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	if _, err := s.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeGenerate, payload), opts...); err != nil {
		return fmt.Errorf("enqueue job %d: %w", jobID, err)
	}
	return nil
}

func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}

var _ Scheduler = (*AsynqScheduler)(nil)
