package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/api/response"
	"github.com/kiranshivaraju/copyforge/internal/compose"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// CopyManager defines the content application operations the product
// handlers depend on.
type CopyManager interface {
	Apply(ctx context.Context, productID int64, artifact, content string) error
	Rollback(ctx context.Context, productID int64, entryID uuid.UUID) error
	History(ctx context.Context, productID int64) ([]*models.HistoryEntry, error)
	SetFieldLock(ctx context.Context, productID int64, artifact string, locked bool) error
}

func productIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	return id, err == nil && id > 0
}

func writeCopyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, compose.ErrInvalidArtifact):
		response.Error(w, http.StatusBadRequest, "INVALID_ARTIFACT",
			"artifact must be one of the supported kinds",
			map[string]any{"supported": models.SupportedArtifacts})
	case errors.Is(err, compose.ErrFieldLocked):
		response.Error(w, http.StatusConflict, "FIELD_LOCKED",
			"This field is locked from AI updates", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// NewApplyHandler returns an http.HandlerFunc for
// POST /api/v1/products/{productID}/apply.
func NewApplyHandler(svc CopyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := productIDParam(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Invalid product ID", nil)
			return
		}

		var req struct {
			Artifact string `json:"artifact"`
			Content  string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Content == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content is required", nil)
			return
		}

		if err := svc.Apply(r.Context(), productID, req.Artifact, req.Content); err != nil {
			writeCopyError(w, err)
			return
		}

		response.JSON(w, map[string]any{"product_id": productID, "artifact": req.Artifact, "applied": true})
	}
}

// NewRollbackHandler returns an http.HandlerFunc for
// POST /api/v1/products/{productID}/rollback.
func NewRollbackHandler(svc CopyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := productIDParam(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Invalid product ID", nil)
			return
		}

		var req struct {
			HistoryID string `json:"history_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		entryID, err := uuid.Parse(req.HistoryID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_HISTORY_ID", "Invalid history_id format", nil)
			return
		}

		if err := svc.Rollback(r.Context(), productID, entryID); err != nil {
			writeCopyError(w, err)
			return
		}

		response.JSON(w, map[string]any{"product_id": productID, "history_id": entryID, "restored": true})
	}
}

// NewHistoryHandler returns an http.HandlerFunc for
// GET /api/v1/products/{productID}/history.
func NewHistoryHandler(svc CopyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := productIDParam(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Invalid product ID", nil)
			return
		}

		entries, err := svc.History(r.Context(), productID)
		if err != nil {
			writeCopyError(w, err)
			return
		}

		response.Collection(w, entries, response.CollectionMeta{Count: len(entries)})
	}
}

// NewLockHandler returns an http.HandlerFunc for
// PUT /api/v1/products/{productID}/locks.
func NewLockHandler(svc CopyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := productIDParam(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Invalid product ID", nil)
			return
		}

		var req struct {
			Artifact string `json:"artifact"`
			Locked   bool   `json:"locked"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := svc.SetFieldLock(r.Context(), productID, req.Artifact, req.Locked); err != nil {
			writeCopyError(w, err)
			return
		}

		response.JSON(w, map[string]any{"product_id": productID, "artifact": req.Artifact, "locked": req.Locked})
	}
}
