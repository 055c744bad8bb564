package pluginauth

import "errors"

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrUnauthenticated  = errors.New("invalid plugin credentials")
	ErrNotFound         = errors.New("plugin not found")
	ErrExpired          = errors.New("auth request expired")
	ErrUnauthorized     = errors.New("plugin not authorized")
	ErrRequireReauth    = errors.New("plugin re-authorization required")
	ErrConcurrentUpdate = errors.New("plugin updated concurrently")
	ErrStoreFailed      = errors.New("plugin store failed")
	ErrCryptoFailed     = errors.New("plugin crypto failed")
)
