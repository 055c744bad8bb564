// Package plugin contiene el controller del plano de datos del plugin.
package plugin

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/noke/internal/domain/types"
	dto "github.com/dropDatabas3/noke/internal/http/dto/plugin"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/helpers"
	"github.com/dropDatabas3/noke/internal/http/middlewares"
	svc "github.com/dropDatabas3/noke/internal/http/services/plugindata"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// Controller maneja /api/plugin/*. Corre detrás de RequirePlugin.
type Controller struct {
	service svc.Service
}

// NewController crea el controller.
func NewController(s svc.Service) *Controller {
	return &Controller{service: s}
}

// Entries maneja GET|POST /api/plugin/entries
func (c *Controller) Entries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("plugin.entries"))

	p := middlewares.GetPrincipal(ctx)
	if p == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	entries, err := c.service.Entries(ctx, p.Username)
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.EntriesResponse{
		Success:    true,
		Entries:    toDTO(entries),
		RollingKey: rollingKey(p),
	})
}

// Search maneja GET|POST /api/plugin/search. La URL llega por query (?url=)
// o en el body.
func (c *Controller) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("plugin.search"))

	p := middlewares.GetPrincipal(ctx)
	if p == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" && r.Method == http.MethodPost {
		var req dto.SearchRequest
		if err := helpers.ReadJSON(w, r, &req); err != nil {
			httperrors.WriteError(w, err)
			return
		}
		target = strings.TrimSpace(req.URL)
	}

	res, err := c.service.Search(ctx, p.Username, target)
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SearchResponse{
		Success:       true,
		Entries:       toDTO(res.Entries),
		MatchedDomain: res.MatchedDomain,
		RollingKey:    rollingKey(p),
	})
}

// Generate maneja POST /api/plugin/generate
func (c *Controller) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("plugin.generate"))

	p := middlewares.GetPrincipal(ctx)
	if p == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	pw, err := c.service.Generate(ctx, svc.GenerateOptions{
		Length:    req.Length,
		Uppercase: req.Uppercase,
		Lowercase: req.Lowercase,
		Numbers:   req.Numbers,
		Symbols:   req.Symbols,
	})
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.GenerateResponse{
		Success:    true,
		Password:   pw,
		RollingKey: rollingKey(p),
	})
}

// rollingKey repite en el body la key que RequirePlugin ya puso en cabeceras.
func rollingKey(p *types.Principal) dto.RollingKey {
	if !p.Rotated() {
		return dto.RollingKey{}
	}
	return dto.RollingKey{NewRollingKey: p.NewRollingKey, KeyVersion: p.KeyVersion}
}

func toDTO(in []svc.Entry) []dto.Entry {
	out := make([]dto.Entry, 0, len(in))
	for _, e := range in {
		out = append(out, dto.Entry{
			ID:            e.ID,
			Name:          e.Name,
			LoginUsername: e.LoginUsername,
			Password:      e.Password,
			URL:           e.URL,
			Notes:         e.Notes,
			Folder:        e.Folder,
		})
	}
	return out
}

func (c *Controller) handleServiceError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrMissingURL):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("url"))
	case errors.Is(err, svc.ErrNoCharset):
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail(err.Error()))
	default:
		log.Error("unexpected error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
