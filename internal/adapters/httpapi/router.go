package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// NewRouter mounts the API. A nil limiter disables rate limiting.
func NewRouter(h *Handler, limiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(RateLimit(limiter))
		}
		r.Post("/analyse", h.Analyse)
		r.Post("/quote", h.Quote)
		r.Post("/manual-review", h.ManualReview)
	})
	return r
}
