// Package cache provee un cliente key/value con TTL sobre dos backends:
//   - Memory (go-cache, in-process, para desarrollo y un solo nodo)
//   - Redis (distribuido, para producción con varias réplicas)
//
// Se usa para estado efímero: challenges de MFA pendientes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor. Si ttl es 0 se usa el TTL por defecto.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Take obtiene y elimina el valor en una sola operación. Dos llamadas
	// concurrentes sobre la misma key nunca obtienen ambas el valor.
	Take(ctx context.Context, key string) (string, error)

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind       string // "memory" | "redis"
	RedisAddr  string
	RedisPass  string
	RedisDB    int
	Prefix     string // prefijo para todas las keys
	DefaultTTL time.Duration
}

// ErrNotFound indica que la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New crea un cliente de cache según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
