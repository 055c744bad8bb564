// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/noke/internal/http/dto/health"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	StoreCheck func(ctx context.Context) error // crítico
	CacheCheck func(ctx context.Context) error // nil = cache en memoria
	Pool       metrics.PoolStats               // opcional, informativo
	Version    string
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	response := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}

	hasErrors := false
	hasCriticalErrors := false

	// 1) Store (crítico)
	if s.deps.StoreCheck != nil {
		if err := s.deps.StoreCheck(ctx); err != nil {
			response.Components["store"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasCriticalErrors = true
			log.Error("store unavailable", logger.Err(err))
		} else {
			response.Components["store"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["store"] = dto.HealthStatus{Status: "error", Message: "store not initialized"}
		hasCriticalErrors = true
	}

	// 2) Cache (no crítico: solo afecta logins con MFA pendientes)
	if s.deps.CacheCheck != nil {
		if err := s.deps.CacheCheck(ctx); err != nil {
			response.Components["cache"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasErrors = true
			log.Error("cache unavailable", logger.Err(err))
		} else {
			response.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["cache"] = dto.HealthStatus{Status: "disabled", Message: "memory cache only"}
	}

	// 3) Pool (informativo)
	if s.deps.Pool != nil {
		if acquired, idle, total, ok := s.deps.Pool.PoolStat(); ok {
			response.Components["db_pool"] = dto.HealthStatus{
				Status:  "ok",
				Message: fmt.Sprintf("acquired=%d idle=%d total=%d", acquired, idle, total),
			}
		}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}
