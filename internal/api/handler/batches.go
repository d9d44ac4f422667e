package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/api/response"
	"github.com/kiranshivaraju/copyforge/internal/jobs"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

const maxBatchProducts = 100

// BatchCoordinator defines the batch operations the handlers depend on.
type BatchCoordinator interface {
	EnqueueBatch(ctx context.Context, productIDs []int64, artifacts []string, opts jobs.EnqueueOptions, requestedBy *uuid.UUID) (*jobs.BatchResult, error)
	Status(ctx context.Context, batchID string) (*models.BatchStatus, error)
	Cancel(ctx context.Context, batchID string) (int64, error)
}

// NewEnqueueBatchHandler returns an http.HandlerFunc for POST /api/v1/batches.
func NewEnqueueBatchHandler(svc BatchCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductIDs []int64                 `json:"product_ids"`
			Artifacts  []string                `json:"artifacts"`
			Overrides  models.ContextOverrides `json:"overrides"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if len(req.ProductIDs) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "product_ids is required", nil)
			return
		}
		if len(req.ProductIDs) > maxBatchProducts {
			response.Error(w, http.StatusBadRequest, "BATCH_TOO_LARGE",
				"Too many products in one batch",
				map[string]any{"max_products": maxBatchProducts})
			return
		}
		if len(req.Artifacts) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artifacts is required", nil)
			return
		}
		for _, a := range req.Artifacts {
			if !models.ValidArtifact(a) {
				response.Error(w, http.StatusBadRequest, "INVALID_ARTIFACT",
					"artifact must be one of the supported kinds",
					map[string]any{"supported": models.SupportedArtifacts})
				return
			}
		}

		result, err := svc.EnqueueBatch(r.Context(), req.ProductIDs, req.Artifacts,
			jobs.EnqueueOptions{Overrides: req.Overrides}, requesterID(r))
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to enqueue batch", nil)
			return
		}

		response.Accepted(w, result)
	}
}

// NewGetBatchHandler returns an http.HandlerFunc for GET /api/v1/batches/{batchID}.
func NewGetBatchHandler(svc BatchCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		if batchID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_BATCH_ID", "Invalid batch ID", nil)
			return
		}

		status, err := svc.Status(r.Context(), batchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "BATCH_NOT_FOUND", "Batch not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load batch status", nil)
			return
		}

		response.JSON(w, status)
	}
}

// NewCancelBatchHandler returns an http.HandlerFunc for DELETE /api/v1/batches/{batchID}.
// Only still-queued jobs are cancelled; running jobs finish on their own.
func NewCancelBatchHandler(svc BatchCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		if batchID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_BATCH_ID", "Invalid batch ID", nil)
			return
		}

		cancelled, err := svc.Cancel(r.Context(), batchID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to cancel batch", nil)
			return
		}

		response.JSON(w, map[string]any{"batch_id": batchID, "cancelled": cancelled})
	}
}
