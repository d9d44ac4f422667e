package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSuccess   = "success"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job tracks one async generation unit: a single (product, artifact) pair.
// The API returns a job id on enqueue; clients poll GET /api/v1/jobs/{id}
// or the batch endpoint until the job reaches a terminal status.
type Job struct {
	ID             int64           `db:"id"              json:"id"`
	ProductID      int64           `db:"product_id"      json:"product_id"`
	Artifact       string          `db:"artifact"        json:"artifact"`
	Status         string          `db:"status"          json:"status"`
	RequestPayload json.RawMessage `db:"request_payload" json:"request_payload,omitempty"`
	Response       json.RawMessage `db:"response"        json:"response,omitempty"`
	Error          *string         `db:"error"           json:"error,omitempty"`
	Model          string          `db:"model"           json:"model,omitempty"`
	Tokens         int             `db:"tokens"          json:"tokens"`
	RetryCount     int             `db:"retry_count"     json:"retry_count"`
	BatchID        *string         `db:"batch_id"        json:"batch_id,omitempty"`
	RequestedBy    *uuid.UUID      `db:"requested_by"    json:"requested_by,omitempty"`
	CreatedAt      time.Time       `db:"created_at"      json:"created_at"`
	StartedAt      *time.Time      `db:"started_at"      json:"started_at,omitempty"`
	FinishedAt     *time.Time      `db:"finished_at"     json:"finished_at,omitempty"`
}

// IsTerminal reports whether the job can no longer change status on its own.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusSuccess, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// BatchStatus is the aggregated view of all jobs sharing a batch id.
// It is derived at query time; a batch is never stored as its own entity.
type BatchStatus struct {
	BatchID      string         `json:"batch_id"`
	Total        int            `json:"total"`
	Completed    int            `json:"completed"`
	Progress     int            `json:"progress"`
	StatusCounts map[string]int `json:"status_counts"`
	IsComplete   bool           `json:"is_complete"`
}

// UsageStat is one day of job throughput, used by the usage endpoint.
type UsageStat struct {
	Date           time.Time `db:"date"            json:"date"`
	TotalJobs      int       `db:"total_jobs"      json:"total_jobs"`
	SuccessfulJobs int       `db:"successful_jobs" json:"successful_jobs"`
	FailedJobs     int       `db:"failed_jobs"     json:"failed_jobs"`
	TotalTokens    int64     `db:"total_tokens"    json:"total_tokens"`
}
