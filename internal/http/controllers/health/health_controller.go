// Package health contiene el controller para health checks.
package health

import (
	"net/http"
	"slices"
	"strings"

	dto "github.com/dropDatabas3/noke/internal/http/dto/health"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/helpers"
	svc "github.com/dropDatabas3/noke/internal/http/services/health"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// HealthController maneja las rutas de health check.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Healthz maneja GET /healthz. Solo confirma que el proceso responde.
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.HealthStatus{Status: "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	response := c.service.Check(ctx)

	if response.Version != "" {
		w.Header().Set("X-Service-Version", response.Version)
	}

	log.Debug("health check completed",
		logger.String("status", response.Status),
		logger.Int("components_count", len(response.Components)),
	)

	if response.Status == "unavailable" {
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail(failing(response.Components)))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, response)
}

// failing lista, ordenados, los componentes en estado "error".
func failing(components map[string]dto.HealthStatus) string {
	var names []string
	for name, st := range components {
		if st.Status == "error" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return strings.Join(names, ",")
}
