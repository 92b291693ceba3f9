package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Deletes cascade, so they get a tighter budget: burst of 100, then 10/second.
	deleteLimiter := RateLimitMiddleware(rate.NewLimiter(rate.Limit(10), 100))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Get("/attributes", h.ListAttributes)
			r.Get("/data", h.QueryData)
			r.Post("/data", h.WriteData)
			r.With(deleteLimiter).Delete("/data", h.DeleteData)
			r.With(deleteLimiter).Delete("/attributes", h.DeleteAttribute)
		})
	})

	return r
}
