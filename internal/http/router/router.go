// Package router arma el árbol de rutas HTTP sobre chi.
//
// Cadena global (en orden): Recover → RequestID → Metrics → CORS →
// SecurityHeaders → NoStore → Logging. Cada grupo agrega su rate limit y su
// autenticación (sesión web o credenciales del plugin).
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dropDatabas3/noke/internal/http/controllers"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	mw "github.com/dropDatabas3/noke/internal/http/middlewares"
	"github.com/dropDatabas3/noke/internal/http/services/pluginauth"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/rate"
)

// Limit es un par límite/ventana de un grupo de rutas. Limit<=0 lo desactiva.
type Limit struct {
	Limit  int64
	Window time.Duration
}

// Deps contiene lo necesario para registrar todas las rutas.
type Deps struct {
	Controllers *controllers.Controllers
	Session     mw.SessionVerifier
	Validator   pluginauth.Validator
	Metrics     *metrics.Metrics // nil = sin /metrics ni instrumentación
	MetricsPath string

	CORSOrigins []string

	// Rate limiting; Limiter nil lo desactiva en todos los grupos.
	Limiter    rate.Limiter
	General    Limit
	PluginAuth Limit
	Login      Limit
}

// New crea el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		d.Metrics.Middleware,
		mw.WithCORS(d.CORSOrigins),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
		mw.WithLogging(),
	)...)
	r.Use(chimw.CleanPath)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)
	r.Route("/api", func(r chi.Router) {
		registerPluginAuthRoutes(r, d)
		registerPluginRoutes(r, d)
		registerAccountRoutes(r, d)
	})

	return r
}

// rateLimit arma el middleware de un grupo; nil si está desactivado.
func (d Deps) rateLimit(scope string, l Limit, key mw.RateKeyFunc) mw.Middleware {
	if d.Limiter == nil {
		return nil
	}
	return mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: d.Limiter,
		Limit:   l.Limit,
		Window:  l.Window,
		KeyFunc: key,
		Scope:   scope,
		Metrics: d.Metrics,
	})
}
