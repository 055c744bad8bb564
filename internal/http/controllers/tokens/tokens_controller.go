// Package tokens contiene el controller de /api/tokens.
package tokens

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/dropDatabas3/noke/internal/http/dto/tokens"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/helpers"
	"github.com/dropDatabas3/noke/internal/http/middlewares"
	svc "github.com/dropDatabas3/noke/internal/http/services/tokens"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// Controller gestiona los API tokens estáticos del usuario de la sesión.
type Controller struct {
	service svc.Service
}

func NewController(s svc.Service) *Controller {
	return &Controller{service: s}
}

// List maneja GET /api/tokens
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("tokens.list"))

	items, err := c.service.List(ctx, middlewares.GetUsername(ctx))
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	out := make([]dto.Token, 0, len(items))
	for _, t := range items {
		out = append(out, dto.Token{
			ID:          t.ID,
			Name:        t.Name,
			Permissions: t.Permissions,
			CreatedAt:   t.CreatedAt,
			LastUsed:    t.LastUsed,
			ExpiresAt:   t.ExpiresAt,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ListResponse{Success: true, Tokens: out})
}

// Create maneja POST /api/tokens. El token en claro solo viaja en esta
// respuesta.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("tokens.create"))

	var req dto.CreateRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	created, err := c.service.Create(ctx, middlewares.GetUsername(ctx), svc.CreateInput{
		Name:        req.Name,
		ExpiresIn:   req.ExpiresIn,
		Permissions: req.Permissions,
	})
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	log.Info("api token created", logger.TokenID(created.ID))
	helpers.WriteJSON(w, http.StatusCreated, dto.CreateResponse{
		Success:     true,
		Token:       created.Raw,
		TokenID:     created.ID,
		Name:        created.Name,
		Permissions: created.Permissions,
		ExpiresAt:   created.ExpiresAt,
	})
}

// Delete maneja DELETE /api/tokens/{tokenId}
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("tokens.delete"))

	tokenID := chi.URLParam(r, "tokenId")
	if tokenID == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("tokenId"))
		return
	}

	if err := c.service.Delete(ctx, middlewares.GetUsername(ctx), tokenID); err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	log.Info("api token deleted", logger.TokenID(tokenID))
	helpers.WriteJSON(w, http.StatusOK, dto.DeleteResponse{Success: true})
}

func (c *Controller) handleServiceError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrInvalidExpiry), errors.Is(err, svc.ErrInvalidPermission):
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail(err.Error()))
	case errors.Is(err, svc.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("token not found"))
	default:
		log.Error("unexpected error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
