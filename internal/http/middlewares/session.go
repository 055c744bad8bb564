package middlewares

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/noke/internal/http/errors"
	authsvc "github.com/dropDatabas3/noke/internal/http/services/auth"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// SessionVerifier valida un token de sesión web y retorna el usuario.
// *auth.SessionIssuer lo implementa.
type SessionVerifier interface {
	Verify(raw string) (string, error)
}

// bearerToken extrae el token de "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireSession exige una sesión web válida e inyecta el usuario en el
// contexto (y en el logger del request).
func RequireSession(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			username, err := v.Verify(raw)
			if err != nil {
				if stderrors.Is(err, authsvc.ErrSessionExpired) {
					errors.WriteError(w, errors.ErrSessionExpired)
					return
				}
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			ctx := WithUsername(r.Context(), username)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Username(username)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
