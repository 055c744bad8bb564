package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/rate"
)

// clientIP extrae la IP del cliente, considerando proxies.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPPathRateKey genera una clave por IP y path. Se usa en el protocolo del
// plugin para que el polling de check-auth no consuma el cupo de register.
func IPPathRateKey(r *http.Request) string {
	return clientIP(r) + "|" + r.URL.Path
}

// IPOnlyRateKey genera una clave basada solo en IP.
// Útil para login y verify-mfa, donde no queremos leer el body.
func IPOnlyRateKey(r *http.Request) string {
	return clientIP(r)
}

// RateLimitConfig configura el comportamiento del middleware de rate limiting.
type RateLimitConfig struct {
	Limiter rate.Limiter
	Limit   int64
	Window  time.Duration
	KeyFunc RateKeyFunc
	Scope   string // etiqueta de métrica y prefijo de la clave
	Metrics *metrics.Metrics
}

// WithRateLimit crea un middleware de rate limiting de ventana fija.
// Si el limiter falla la request pasa.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil || cfg.Limit <= 0 || cfg.Window <= 0 {
		return nil
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPPathRateKey
	}
	if cfg.Scope == "" {
		cfg.Scope = "default"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.Scope + ":" + cfg.KeyFunc(r)
			res, err := cfg.Limiter.Allow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error", logger.Op("rate_limit"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}

			if !res.Allowed {
				if res.RetryAfter > 0 {
					secs := int((res.RetryAfter + time.Second - 1) / time.Second)
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				cfg.Metrics.RateLimited(cfg.Scope)
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
