package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Jobs. Every operation touches a single row; the pipeline tolerates
	// the enqueue-time existence check racing with a concurrent insert.
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	FindActiveJob(ctx context.Context, productID int64, artifact string) (int64, bool, error)
	ListJobsByBatch(ctx context.Context, batchID string) ([]*models.Job, error)
	CountJobsByStatus(ctx context.Context, batchID string) (map[string]int, error)
	NextQueuedInBatch(ctx context.Context, batchID string, limit int) ([]int64, error)
	MarkJobRunning(ctx context.Context, id int64) (bool, error)
	CompleteJob(ctx context.Context, id int64, response json.RawMessage, model string, tokens int) error
	FailJob(ctx context.Context, id int64, errMsg string) error
	RequeueJob(ctx context.Context, id int64, retryCount int, errMsg string) error
	CancelQueuedInBatch(ctx context.Context, batchID string) (int64, error)
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListRecentJobs(ctx context.Context, requestedBy *uuid.UUID, limit int) ([]*models.Job, error)
	UsageStats(ctx context.Context, days int) ([]*models.UsageStat, error)

	// Products and copy application.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	UpdateProductText(ctx context.Context, id int64, artifact, content string) error
	UpdateProductCopyBlob(ctx context.Context, id int64, artifact, content string) error
	UpdateProductLocks(ctx context.Context, id int64, locks map[string]bool) error

	// Generation history, bounded to the 20 newest entries per product.
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, productID int64) ([]*models.HistoryEntry, error)
	GetHistoryEntry(ctx context.Context, productID int64, entryID uuid.UUID) (*models.HistoryEntry, error)

	// API keys.
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}
