package middlewares

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/services/pluginauth"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// CredentialsFromRequest lee las cabeceras de autenticación del plugin.
func CredentialsFromRequest(r *http.Request) pluginauth.Credentials {
	return pluginauth.Credentials{
		PluginID: r.Header.Get(HeaderPluginID),
		APIKey:   r.Header.Get(HeaderAPIKey),
		Bearer:   bearerToken(r),
	}
}

// PluginError traduce un error del validador a la respuesta HTTP.
func PluginError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, pluginauth.ErrRequireReauth):
		return errors.ErrRequireReauth
	case stderrors.Is(err, pluginauth.ErrUnauthorized):
		return errors.ErrUnauthorized
	default:
		return errors.ErrInternalServerError.WithCause(err)
	}
}

// SetRollingKeyHeaders expone la key siguiente en las cabeceras. Se escriben
// antes del handler para que también lleguen en respuestas de error.
func SetRollingKeyHeaders(w http.ResponseWriter, newKey string, version int64) {
	w.Header().Set(HeaderNewRollingKey, newKey)
	w.Header().Set(HeaderKeyVersion, strconv.FormatInt(version, 10))
}

// RequirePlugin autentica la request con rolling key o token estático e
// inyecta el principal en el contexto.
func RequirePlugin(v pluginauth.Validator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := v.Validate(r.Context(), CredentialsFromRequest(r))
			if err != nil {
				errors.WriteError(w, PluginError(err))
				return
			}
			if p.Rotated() {
				SetRollingKeyHeaders(w, p.NewRollingKey, p.KeyVersion)
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(
				logger.Username(p.Username),
				logger.AuthMode(string(p.Mode)),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission exige que el principal tenga perm. Debe ir después de
// RequirePlugin.
func RequirePermission(perm string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetPrincipal(r.Context()).Can(perm) {
				errors.WriteError(w, errors.ErrInsufficientPermissions)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
