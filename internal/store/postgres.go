package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, product_id, artifact, status, request_payload, response, error,
	model, tokens, retry_count, batch_id, requested_by, created_at, started_at, finished_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.ProductID, &j.Artifact, &j.Status, &j.RequestPayload,
		&j.Response, &j.Error, &j.Model, &j.Tokens, &j.RetryCount, &j.BatchID,
		&j.RequestedBy, &j.CreatedAt, &j.StartedAt, &j.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (product_id, artifact, status, request_payload, retry_count, batch_id, requested_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		job.ProductID, job.Artifact, job.Status, job.RequestPayload,
		job.RetryCount, job.BatchID, job.RequestedBy, job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// FindActiveJob returns the newest queued or running job for the pair, if any.
// The check is advisory; a concurrent enqueue can still slip a duplicate in.
func (s *PostgresStore) FindActiveJob(ctx context.Context, productID int64, artifact string) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM jobs
		 WHERE product_id = $1 AND artifact = $2 AND status IN ($3, $4)
		 ORDER BY created_at DESC LIMIT 1`,
		productID, artifact, models.JobStatusQueued, models.JobStatusRunning,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find active job: %w", err)
	}
	return id, true, nil
}

func (s *PostgresStore) ListJobsByBatch(ctx context.Context, batchID string) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE batch_id = $1 ORDER BY created_at ASC, id ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by batch: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) CountJobsByStatus(ctx context.Context, batchID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM jobs WHERE batch_id = $1 GROUP BY status`, batchID)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// NextQueuedInBatch returns up to limit queued job ids, oldest first.
// created_at ascending is a tie-break for advancement, not a FIFO guarantee.
func (s *PostgresStore) NextQueuedInBatch(ctx context.Context, batchID string, limit int) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM jobs WHERE batch_id = $1 AND status = $2
		 ORDER BY created_at ASC, id ASC LIMIT $3`,
		batchID, models.JobStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("next queued in batch: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkJobRunning transitions queued -> running. It reports false when the job
// is missing or no longer queued, which makes duplicate scheduler firings a no-op.
func (s *PostgresStore) MarkJobRunning(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, started_at = $3 WHERE id = $1 AND status = $4`,
		id, models.JobStatusRunning, time.Now().UTC(), models.JobStatusQueued)
	if err != nil {
		return false, fmt.Errorf("mark job running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id int64, response json.RawMessage, model string, tokens int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, response = $3, model = $4, tokens = $5, finished_at = $6
		 WHERE id = $1`,
		id, models.JobStatusSuccess, response, model, tokens, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id int64, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, error = $3, finished_at = $4 WHERE id = $1`,
		id, models.JobStatusFailed, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueJob puts a failed attempt back in the queue with its bumped retry counter.
func (s *PostgresStore) RequeueJob(ctx context.Context, id int64, retryCount int, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, retry_count = $3, error = $4 WHERE id = $1`,
		id, models.JobStatusQueued, retryCount, errMsg)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelQueuedInBatch bulk-cancels jobs that have not started. Running jobs
// are untouched and will finish normally.
func (s *PostgresStore) CancelQueuedInBatch(ctx context.Context, batchID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $3 WHERE batch_id = $1 AND status = $2`,
		batchID, models.JobStatusQueued, models.JobStatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("cancel queued in batch: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete jobs before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListRecentJobs(ctx context.Context, requestedBy *uuid.UUID, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC LIMIT $1`
	args := []any{limit}
	if requestedBy != nil {
		query = `SELECT ` + jobColumns + ` FROM jobs WHERE requested_by = $2 ORDER BY created_at DESC LIMIT $1`
		args = append(args, *requestedBy)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) UsageStats(ctx context.Context, days int) ([]*models.UsageStat, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.pool.Query(ctx,
		`SELECT DATE(created_at) AS date,
		        COUNT(*) AS total_jobs,
		        COUNT(*) FILTER (WHERE status = $2) AS successful_jobs,
		        COUNT(*) FILTER (WHERE status = $3) AS failed_jobs,
		        COALESCE(SUM(tokens), 0) AS total_tokens
		 FROM jobs WHERE created_at >= $1
		 GROUP BY DATE(created_at) ORDER BY date DESC`,
		since, models.JobStatusSuccess, models.JobStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("usage stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.UsageStat
	for rows.Next() {
		var st models.UsageStat
		if err := rows.Scan(&st.Date, &st.TotalJobs, &st.SuccessfulJobs, &st.FailedJobs, &st.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan usage stat: %w", err)
		}
		stats = append(stats, &st)
	}
	return stats, rows.Err()
}

// --- Products ---

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, product_type, price, regular_price, sale_price, sku, stock_status,
		        short_description, long_description, seo_title, seo_description,
		        attributes, categories, tags, generated_copy, locked_fields, created_at, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.ProductType, &p.Price, &p.RegularPrice, &p.SalePrice,
		&p.SKU, &p.StockStatus, &p.ShortDescription, &p.LongDescription,
		&p.SEOTitle, &p.SEODescription, &p.Attributes, &p.Categories, &p.Tags,
		&p.GeneratedCopy, &p.LockedFields, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// textColumns maps text artifacts to their dedicated product column.
var textColumns = map[string]string{
	models.ArtifactTitle:            "name",
	models.ArtifactShortDescription: "short_description",
	models.ArtifactLongDescription:  "long_description",
	models.ArtifactSEOTitle:         "seo_title",
	models.ArtifactSEODescription:   "seo_description",
}

func (s *PostgresStore) UpdateProductText(ctx context.Context, id int64, artifact, content string) error {
	column, ok := textColumns[artifact]
	if !ok {
		return fmt.Errorf("artifact %q has no text column", artifact)
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE products SET %s = $2, updated_at = NOW() WHERE id = $1`, column),
		id, content)
	if err != nil {
		return fmt.Errorf("update product %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProductCopyBlob stores artifacts without a dedicated column under
// their artifact key in the generated_copy document.
func (s *PostgresStore) UpdateProductCopyBlob(ctx context.Context, id int64, artifact, content string) error {
	value, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode copy blob: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE products
		 SET generated_copy = jsonb_set(COALESCE(generated_copy, '{}'::jsonb), ARRAY[$2::text], $3::jsonb),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, artifact, value)
	if err != nil {
		return fmt.Errorf("update product copy blob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateProductLocks(ctx context.Context, id int64, locks map[string]bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET locked_fields = $2, updated_at = NOW() WHERE id = $1`,
		id, locks)
	if err != nil {
		return fmt.Errorf("update product locks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- History ---

// AppendHistory inserts an entry and trims the product's log to its 20 newest rows.
func (s *PostgresStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO product_history (id, product_id, artifact, content, model, tokens, cost_estimate, prompt_hash, requested_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.ProductID, entry.Artifact, entry.Content, entry.Model,
		entry.Tokens, entry.CostEstimate, entry.PromptHash, entry.RequestedBy, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM product_history
		 WHERE product_id = $1 AND id NOT IN (
		   SELECT id FROM product_history WHERE product_id = $1
		   ORDER BY created_at DESC, id DESC LIMIT 20
		 )`, entry.ProductID)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, productID int64) ([]*models.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, artifact, content, model, tokens, cost_estimate, prompt_hash, requested_by, created_at
		 FROM product_history WHERE product_id = $1 ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Artifact, &e.Content, &e.Model,
			&e.Tokens, &e.CostEstimate, &e.PromptHash, &e.RequestedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) GetHistoryEntry(ctx context.Context, productID int64, entryID uuid.UUID) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, product_id, artifact, content, model, tokens, cost_estimate, prompt_hash, requested_by, created_at
		 FROM product_history WHERE product_id = $1 AND id = $2`, productID, entryID,
	).Scan(&e.ID, &e.ProductID, &e.Artifact, &e.Content, &e.Model,
		&e.Tokens, &e.CostEstimate, &e.PromptHash, &e.RequestedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return &e, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
