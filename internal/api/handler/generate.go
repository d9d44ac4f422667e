package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/ai"
	mw "github.com/kiranshivaraju/copyforge/internal/api/middleware"
	"github.com/kiranshivaraju/copyforge/internal/api/response"
	"github.com/kiranshivaraju/copyforge/internal/compose"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// Generator defines the interface the synchronous generate handler depends on.
type Generator interface {
	GenerateMany(ctx context.Context, productID int64, artifacts []string, overrides models.ContextOverrides, apply bool, requestedBy *uuid.UUID) (map[string]compose.ArtifactResult, error)
	Provider() string
}

// NewGenerateHandler returns an http.HandlerFunc for POST /api/v1/generate.
// Generation happens inline; callers wanting async behavior use the jobs API.
func NewGenerateHandler(svc Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int64                   `json:"product_id"`
			Artifacts []string                `json:"artifacts"`
			Overrides models.ContextOverrides `json:"overrides"`
			Apply     bool                    `json:"apply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.ProductID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "product_id is required", nil)
			return
		}
		if len(req.Artifacts) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artifacts is required", nil)
			return
		}

		requestedBy := requesterID(r)
		results, err := svc.GenerateMany(r.Context(), req.ProductID, req.Artifacts, req.Overrides, req.Apply, requestedBy)
		if err != nil {
			switch {
			case errors.Is(err, compose.ErrInvalidArtifact):
				response.Error(w, http.StatusBadRequest, "INVALID_ARTIFACT",
					"No supported artifacts in request", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND",
					"Product not found", nil)
			case errors.Is(err, ai.ErrProviderUnavailable):
				response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
					"The AI provider is not available", nil)
			case errors.Is(err, ai.ErrInferenceTimeout):
				response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT",
					"Generation took too long and was cancelled", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, map[string]any{
			"product_id": req.ProductID,
			"provider":   svc.Provider(),
			"results":    results,
		})
	}
}

// requesterID pulls the authenticated key id out of the request, or nil when
// the route is unauthenticated.
func requesterID(r *http.Request) *uuid.UUID {
	id, ok := mw.GetKeyID(r)
	if !ok {
		return nil
	}
	return &id
}
