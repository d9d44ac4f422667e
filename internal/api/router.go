package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/copyforge/internal/api/middleware"
	"github.com/kiranshivaraju/copyforge/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler   http.HandlerFunc
	GenerateHandler http.HandlerFunc

	EnqueueJobHandler http.HandlerFunc
	GetJobHandler     http.HandlerFunc
	ListJobsHandler   http.HandlerFunc

	EnqueueBatchHandler http.HandlerFunc
	GetBatchHandler     http.HandlerFunc
	CancelBatchHandler  http.HandlerFunc

	ApplyHandler    http.HandlerFunc
	RollbackHandler http.HandlerFunc
	HistoryHandler  http.HandlerFunc
	LockHandler     http.HandlerFunc

	UsageHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/generate", orNotImplemented(deps.GenerateHandler))

		r.Post("/api/v1/jobs", orNotImplemented(deps.EnqueueJobHandler))
		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))

		r.Post("/api/v1/batches", orNotImplemented(deps.EnqueueBatchHandler))
		r.Get("/api/v1/batches/{batchID}", orNotImplemented(deps.GetBatchHandler))
		r.Delete("/api/v1/batches/{batchID}", orNotImplemented(deps.CancelBatchHandler))

		r.Post("/api/v1/products/{productID}/apply", orNotImplemented(deps.ApplyHandler))
		r.Post("/api/v1/products/{productID}/rollback", orNotImplemented(deps.RollbackHandler))
		r.Get("/api/v1/products/{productID}/history", orNotImplemented(deps.HistoryHandler))
		r.Put("/api/v1/products/{productID}/locks", orNotImplemented(deps.LockHandler))

		r.Get("/api/v1/usage", orNotImplemented(deps.UsageHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
