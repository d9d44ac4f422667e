package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/copyforge/internal/api/response"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

const defaultUsageDays = 30

// UsageReader reads aggregated job statistics; store.Store satisfies it.
type UsageReader interface {
	UsageStats(ctx context.Context, days int) ([]*models.UsageStat, error)
}

// NewUsageHandler returns an http.HandlerFunc for GET /api/v1/usage.
func NewUsageHandler(st UsageReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := defaultUsageDays
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 90 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"days must be between 1 and 90", nil)
				return
			}
			days = n
		}

		stats, err := st.UsageStats(r.Context(), days)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load usage statistics", nil)
			return
		}

		var totalTokens int64
		for _, s := range stats {
			totalTokens += s.TotalTokens
		}

		response.JSON(w, map[string]any{
			"days":         days,
			"total_tokens": totalTokens,
			"daily":        stats,
		})
	}
}
