package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/api"
	mw "github.com/kiranshivaraju/copyforge/internal/api/middleware"
	"github.com/kiranshivaraju/copyforge/internal/cache"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub store that returns empty results (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }
func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *stubStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error)   { return nil, nil }
func (s *stubStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error         { return nil }
func (s *stubStore) GetProduct(_ context.Context, _ int64) (*models.Product, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) UpdateProductText(_ context.Context, _ int64, _, _ string) error { return nil }
func (s *stubStore) UpdateProductCopyBlob(_ context.Context, _ int64, _, _ string) error {
	return nil
}
func (s *stubStore) UpdateProductLocks(_ context.Context, _ int64, _ map[string]bool) error {
	return nil
}
func (s *stubStore) AppendHistory(_ context.Context, _ *models.HistoryEntry) error { return nil }
func (s *stubStore) ListHistory(_ context.Context, _ int64) ([]*models.HistoryEntry, error) {
	return nil, nil
}
func (s *stubStore) GetHistoryEntry(_ context.Context, _ int64, _ uuid.UUID) (*models.HistoryEntry, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) CreateJob(_ context.Context, _ *models.Job) error { return nil }
func (s *stubStore) GetJob(_ context.Context, _ int64) (*models.Job, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) FindActiveJob(_ context.Context, _ int64, _ string) (int64, bool, error) {
	return 0, false, nil
}
func (s *stubStore) ListJobsByBatch(_ context.Context, _ string) ([]*models.Job, error) {
	return nil, nil
}
func (s *stubStore) CountJobsByStatus(_ context.Context, _ string) (map[string]int, error) {
	return nil, nil
}
func (s *stubStore) NextQueuedInBatch(_ context.Context, _ string, _ int) ([]int64, error) {
	return nil, nil
}
func (s *stubStore) MarkJobRunning(_ context.Context, _ int64) (bool, error) { return false, nil }
func (s *stubStore) CompleteJob(_ context.Context, _ int64, _ json.RawMessage, _ string, _ int) error {
	return nil
}
func (s *stubStore) FailJob(_ context.Context, _ int64, _ string) error           { return nil }
func (s *stubStore) RequeueJob(_ context.Context, _ int64, _ int, _ string) error { return nil }
func (s *stubStore) CancelQueuedInBatch(_ context.Context, _ string) (int64, error) {
	return 0, nil
}
func (s *stubStore) DeleteJobsBefore(_ context.Context, _ time.Time) (int64, error) { return 0, nil }
func (s *stubStore) ListRecentJobs(_ context.Context, _ *uuid.UUID, _ int) ([]*models.Job, error) {
	return nil, nil
}
func (s *stubStore) UsageStats(_ context.Context, _ int) ([]*models.UsageStat, error) {
	return nil, nil
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) SetJobStatus(_ context.Context, _ int64, _ string, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetJobStatus(_ context.Context, _ int64) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubStore{}),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/generate"},
		{"POST", "/api/v1/jobs"},
		{"GET", "/api/v1/jobs"},
		{"POST", "/api/v1/batches"},
		{"GET", "/api/v1/usage"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify unused interfaces are satisfied
var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
