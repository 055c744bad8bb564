package middlewares

import (
	"net/http"
	"strings"
)

// Cabeceras del protocolo del plugin.
const (
	HeaderPluginID      = "X-Plugin-ID"
	HeaderAPIKey        = "X-API-Key"
	HeaderNewRollingKey = "X-New-Rolling-Key"
	HeaderKeyVersion    = "X-Key-Version"
)

// WithCORS crea un middleware que maneja CORS para los orígenes permitidos.
// Soporta "*" para permitir cualquier origen. La extensión del navegador
// necesita enviar las cabeceras del plugin y leer las de rotación.
func WithCORS(allowed []string) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, len(allowed))
	for i, v := range allowed {
		alist[i] = trim(v)
	}

	allowHeaders := strings.Join([]string{
		"Content-Type", "Authorization", "X-Request-ID", HeaderPluginID, HeaderAPIKey,
	}, ", ")
	exposeHeaders := strings.Join([]string{
		"X-Request-ID", HeaderNewRollingKey, HeaderKeyVersion,
		"X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
	}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))
			allowedOrigin := ""

			for _, a := range alist {
				if a == "*" || (origin != "" && strings.EqualFold(origin, a)) {
					allowedOrigin = origin
					break
				}
			}

			// Vary headers para caches/proxies
			w.Header().Add("Vary", "Origin")
			w.Header().Add("Vary", "Access-Control-Request-Method")
			w.Header().Add("Vary", "Access-Control-Request-Headers")

			if allowedOrigin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
				h.Set("Access-Control-Max-Age", "600")
			}

			// Preflight
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
