// Package middlewares contiene los middlewares HTTP del servidor: request id,
// logging, recover, CORS, cabeceras de seguridad, rate limiting, sesión web y
// autenticación del plugin.
package middlewares

import (
	"context"

	"github.com/dropDatabas3/noke/internal/domain/types"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxUsernameKey guarda el usuario de la sesión web
	ctxUsernameKey ctxKey = "username"
	// ctxPrincipalKey guarda el principal resuelto por el validador del plugin
	ctxPrincipalKey ctxKey = "principal"
)

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// WithUsername inyecta el usuario de la sesión en el contexto.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxUsernameKey, username)
}

// WithPrincipal inyecta el principal del plugin en el contexto.
func WithPrincipal(ctx context.Context, p *types.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetUsername obtiene el usuario de la sesión web.
// Retorna cadena vacía si RequireSession no se aplicó.
func GetUsername(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUsernameKey).(string); ok {
		return v
	}
	return ""
}

// GetPrincipal obtiene el principal del plugin. Nil si RequirePlugin no se
// aplicó.
func GetPrincipal(ctx context.Context) *types.Principal {
	if v, ok := ctx.Value(ctxPrincipalKey).(*types.Principal); ok {
		return v
	}
	return nil
}
