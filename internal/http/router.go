// Package httpapi assembles the service router: catalog routes plus the
// operational endpoints.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medcat/internal/catalog/handler"
)

// HealthChecker reports backend liveness for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// New wires the public router. checkers may be empty for in-memory
// deployments.
func New(catalogHandler *handler.Handler, checkers ...HealthChecker) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for _, c := range checkers {
			if c == nil {
				continue
			}
			if err := c.Health(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	catalogHandler.Register(r)
	return r
}
