package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// fakeStore is an in-memory Store covering the pipeline's needs. Methods the
// pipeline never touches return zero values.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	jobs     map[int64]*models.Job
	products map[int64]*models.Product
	history  []*models.HistoryEntry

	createJobErr error
	requeueErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:     make(map[int64]*models.Job),
		products: make(map[int64]*models.Product),
	}
}

func (s *fakeStore) addProduct(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *fakeStore) job(id int64) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) CreateJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createJobErr != nil {
		return s.createJobErr
	}
	s.nextID++
	job.ID = s.nextID
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *fakeStore) FindActiveJob(ctx context.Context, productID int64, artifact string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ProductID == productID && j.Artifact == artifact &&
			(j.Status == models.JobStatusQueued || j.Status == models.JobStatusRunning) {
			return j.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *fakeStore) ListJobsByBatch(ctx context.Context, batchID string) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.BatchID != nil && *j.BatchID == batchID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) CountJobsByStatus(ctx context.Context, batchID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, j := range s.jobs {
		if j.BatchID != nil && *j.BatchID == batchID {
			counts[j.Status]++
		}
	}
	return counts, nil
}

func (s *fakeStore) NextQueuedInBatch(ctx context.Context, batchID string, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id := int64(1); id <= s.nextID && len(ids) < limit; id++ {
		j, ok := s.jobs[id]
		if ok && j.BatchID != nil && *j.BatchID == batchID && j.Status == models.JobStatusQueued {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) MarkJobRunning(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != models.JobStatusQueued {
		return false, nil
	}
	now := time.Now().UTC()
	j.Status = models.JobStatusRunning
	j.StartedAt = &now
	return true, nil
}

func (s *fakeStore) CompleteJob(ctx context.Context, id int64, response json.RawMessage, model string, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	now := time.Now().UTC()
	j.Status = models.JobStatusSuccess
	j.Response = response
	j.Model = model
	j.Tokens = tokens
	j.FinishedAt = &now
	return nil
}

func (s *fakeStore) FailJob(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	now := time.Now().UTC()
	j.Status = models.JobStatusFailed
	j.Error = &errMsg
	j.FinishedAt = &now
	return nil
}

func (s *fakeStore) RequeueJob(ctx context.Context, id int64, retryCount int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requeueErr != nil {
		return s.requeueErr
	}
	j := s.jobs[id]
	j.Status = models.JobStatusQueued
	j.RetryCount = retryCount
	j.Error = &errMsg
	j.StartedAt = nil
	return nil
}

func (s *fakeStore) CancelQueuedInBatch(ctx context.Context, batchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.BatchID != nil && *j.BatchID == batchID && j.Status == models.JobStatusQueued {
			now := time.Now().UTC()
			j.Status = models.JobStatusCancelled
			j.FinishedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, j := range s.jobs {
		if j.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ListRecentJobs(ctx context.Context, requestedBy *uuid.UUID, limit int) ([]*models.Job, error) {
	return nil, nil
}

func (s *fakeStore) UsageStats(ctx context.Context, days int) ([]*models.UsageStat, error) {
	return nil, nil
}

func (s *fakeStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateProductText(ctx context.Context, id int64, artifact, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	switch artifact {
	case models.ArtifactTitle:
		p.Name = content
	case models.ArtifactShortDescription:
		p.ShortDescription = content
	case models.ArtifactLongDescription:
		p.LongDescription = content
	case models.ArtifactSEOTitle:
		p.SEOTitle = content
	case models.ArtifactSEODescription:
		p.SEODescription = content
	}
	return nil
}

func (s *fakeStore) UpdateProductCopyBlob(ctx context.Context, id int64, artifact, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.GeneratedCopy == nil {
		p.GeneratedCopy = make(map[string]string)
	}
	p.GeneratedCopy[artifact] = content
	return nil
}

func (s *fakeStore) UpdateProductLocks(ctx context.Context, id int64, locks map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.LockedFields = locks
	return nil
}

func (s *fakeStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.history = append(s.history, &cp)
	return nil
}

func (s *fakeStore) ListHistory(ctx context.Context, productID int64) ([]*models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.HistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ProductID == productID {
			cp := *s.history[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) GetHistoryEntry(ctx context.Context, productID int64, entryID uuid.UUID) (*models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.history {
		if e.ProductID == productID && e.ID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *fakeStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error { return nil }
func (s *fakeStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error   { return nil }
func (s *fakeStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)    { return nil, nil }
func (s *fakeStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error         { return nil }

var _ store.Store = (*fakeStore)(nil)

// scheduleCall records one Schedule invocation.
type scheduleCall struct {
	JobID int64
	Delay time.Duration
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduleCall
	err   error
}

func (f *fakeScheduler) Schedule(ctx context.Context, jobID int64, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, scheduleCall{JobID: jobID, Delay: delay})
	return nil
}

func (f *fakeScheduler) scheduled() []scheduleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]scheduleCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	statuses map[int64]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:  make(map[string][]byte),
		statuses: make(map[int64]string),
	}
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }

func (c *fakeCache) SetJobStatus(ctx context.Context, jobID int64, status string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *fakeCache) GetJobStatus(ctx context.Context, jobID int64) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.statuses[jobID]
	return v, ok, nil
}

func (c *fakeCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 1, nil
}

// notification is one recorded status-change callback.
type notification struct {
	JobID      int64
	PriorState string
	NewStatus  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) JobStatusChanged(ctx context.Context, job *models.Job, newStatus string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{JobID: job.ID, PriorState: job.Status, NewStatus: newStatus})
}

func (n *recordingNotifier) notified() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.calls))
	copy(out, n.calls)
	return out
}
