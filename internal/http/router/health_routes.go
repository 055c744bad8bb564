package router

import "github.com/go-chi/chi/v5"

// registerHealthRoutes registra probes y métricas. No tienen rate limit.
func registerHealthRoutes(r chi.Router, d Deps) {
	c := d.Controllers.Health

	r.Get("/healthz", c.Healthz)
	r.Get("/readyz", c.Readyz)

	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method("GET", path, d.Metrics.Handler())
	}
}
