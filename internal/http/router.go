// Package httpapi assembles the moderation API router. It is a thin
// layer: every route delegates to a feature handler, which in turn
// delegates to a domain service.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navigategovuk/telldoug2-sub001/internal/platform/middleware"
)

// Registrar is a feature handler that mounts routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the API surface: correlation and auth middleware
// around the feature routes, plus unauthenticated health and metrics
// endpoints.
func NewRouter(validator middleware.TokenValidator, logger *slog.Logger, features ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Correlation)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		for _, feature := range features {
			feature.Register(r)
		}
	})

	return r
}
