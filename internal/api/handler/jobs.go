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
	"github.com/kiranshivaraju/copyforge/internal/cache"
	"github.com/kiranshivaraju/copyforge/internal/jobs"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

const defaultRecentJobsLimit = 20

// JobEnqueuer defines the enqueue operations the job handlers depend on.
type JobEnqueuer interface {
	EnqueueSingle(ctx context.Context, productID int64, artifact string, opts jobs.EnqueueOptions, requestedBy *uuid.UUID) (int64, bool, error)
}

// JobReader reads job state; store.Store satisfies it.
type JobReader interface {
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	ListRecentJobs(ctx context.Context, requestedBy *uuid.UUID, limit int) ([]*models.Job, error)
}

// NewEnqueueJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewEnqueueJobHandler(svc JobEnqueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int64                   `json:"product_id"`
			Artifact  string                  `json:"artifact"`
			Overrides models.ContextOverrides `json:"overrides"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.ProductID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "product_id is required", nil)
			return
		}
		if !models.ValidArtifact(req.Artifact) {
			response.Error(w, http.StatusBadRequest, "INVALID_ARTIFACT",
				"artifact must be one of the supported kinds",
				map[string]any{"supported": models.SupportedArtifacts})
			return
		}

		jobID, created, err := svc.EnqueueSingle(r.Context(), req.ProductID, req.Artifact,
			jobs.EnqueueOptions{Overrides: req.Overrides}, requesterID(r))
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to enqueue job", nil)
			return
		}

		body := map[string]any{"job_id": jobID, "created": created}
		if created {
			response.Accepted(w, body)
			return
		}
		// An active job for this product and artifact already exists.
		response.JSON(w, body)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// The cached status answers cheap polls; full job details come from the store.
func NewGetJobHandler(st JobReader, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
		if err != nil || jobID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Invalid job ID", nil)
			return
		}

		job, err := st.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load job", nil)
			return
		}

		// Prefer the cached status when the worker has updated it more
		// recently than our read.
		if status, ok, err := ca.GetJobStatus(r.Context(), jobID); err == nil && ok {
			job.Status = status
		}

		response.JSON(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
// Results are scoped to the authenticated key's own jobs.
func NewListJobsHandler(st JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRecentJobsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be between 1 and 100", nil)
				return
			}
			limit = n
		}

		list, err := st.ListRecentJobs(r.Context(), requesterID(r), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list jobs", nil)
			return
		}

		response.Collection(w, list, response.CollectionMeta{Count: len(list), Limit: limit})
	}
}
