package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router создаёт маршрутизатор служебных endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware chain
	r.Use(middleware.Recoverer)
	r.Use(Logging(h.logger))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	return r
}
