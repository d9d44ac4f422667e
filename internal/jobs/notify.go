package jobs

import (
	"context"
	"log/slog"

	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// Notifier receives job status transitions. The job argument is the snapshot
// read when the run began, so job.Status holds the status observed at that
// point, not the one just written; newStatus is the one just written.
// Consumers that want the stored row must re-read it.
type Notifier interface {
	JobStatusChanged(ctx context.Context, job *models.Job, newStatus string)
}

// LogNotifier emits status transitions to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) JobStatusChanged(ctx context.Context, job *models.Job, newStatus string) {
	n.logger.InfoContext(ctx, "job status changed",
		"job_id", job.ID,
		"product_id", job.ProductID,
		"artifact", job.Artifact,
		"status", job.Status,
		"new_status", newStatus,
		"retry_count", job.RetryCount,
	)
}

var _ Notifier = (*LogNotifier)(nil)
