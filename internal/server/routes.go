// Package server wires HTTP handlers into a chi router for the relay
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupRoutes configures the relay's routes. Health and metrics are fixed
// chi routes; every other request goes through Handlers.Route, which matches
// the relay and message endpoints by prefix. metricsReg may be nil to leave
// /metrics out.
func SetupRoutes(cfg Config, h *Handlers, metricsReg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(rejectStrayUpgrades(cfg.RelayPath, h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler)
	if metricsReg != nil {
		r.Method(http.MethodGet, "/metrics", MetricsHandler(metricsReg))
	}

	r.NotFound(h.Route)
	r.MethodNotAllowed(h.Route)
	return r
}
