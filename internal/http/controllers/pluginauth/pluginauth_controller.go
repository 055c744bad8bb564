// Package pluginauth contiene el controller del protocolo /api/plugin-auth/*.
package pluginauth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	dto "github.com/dropDatabas3/noke/internal/http/dto/pluginauth"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/helpers"
	"github.com/dropDatabas3/noke/internal/http/middlewares"
	svc "github.com/dropDatabas3/noke/internal/http/services/pluginauth"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// Controller maneja las operaciones del protocolo de autenticación del plugin.
type Controller struct {
	service   svc.Service
	validator svc.Validator
}

// NewController crea el controller.
func NewController(s svc.Services) *Controller {
	return &Controller{service: s.Auth, validator: s.Validator}
}

// Handle devuelve el handler de op. Las operaciones con sesión esperan que
// RequireSession ya haya corrido.
func (c *Controller) Handle(op svc.Operation) http.HandlerFunc {
	switch op {
	case svc.OpRegister:
		return c.register
	case svc.OpRequestAuth:
		return c.requestAuth
	case svc.OpAuthorize:
		return c.authorize
	case svc.OpCheckAuth:
		return c.checkAuth
	case svc.OpValidate:
		return c.validate
	case svc.OpRevoke:
		return c.revoke
	case svc.OpList:
		return c.list
	default:
		return func(w http.ResponseWriter, _ *http.Request) {
			httperrors.WriteError(w, httperrors.ErrRouteNotFound)
		}
	}
}

func (c *Controller) log(r *http.Request, op svc.Operation) *zap.Logger {
	return logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("plugin-auth."+op.String()))
}

// POST /api/plugin-auth/register
func (c *Controller) register(w http.ResponseWriter, r *http.Request) {
	log := c.log(r, svc.OpRegister)

	reg, err := c.service.Register(r.Context())
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.RegisterResponse{
		Success:      true,
		PluginID:     reg.PluginID,
		PluginSecret: reg.PluginSecret,
	})
}

// POST /api/plugin-auth/request-auth
func (c *Controller) requestAuth(w http.ResponseWriter, r *http.Request) {
	log := c.log(r, svc.OpRequestAuth)

	var req dto.CredentialsRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.RequestAuth(r.Context(), req.PluginID, req.PluginSecret)
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.RequestAuthResponse{
		Success:   true,
		AuthURL:   res.AuthURL,
		AuthToken: res.AuthToken,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	})
}

// POST /api/plugin-auth/authorize (sesión)
func (c *Controller) authorize(w http.ResponseWriter, r *http.Request) {
	log := c.log(r, svc.OpAuthorize)

	var req dto.AuthorizeRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	username, err := sessionUser(r, req.Username)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.Authorize(r.Context(), req.PluginID, req.AuthToken, username); err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	log.Info("plugin authorized", logger.PluginID(req.PluginID), logger.Username(username))
	helpers.WriteJSON(w, http.StatusOK, dto.AuthorizeResponse{Success: true, Username: username})
}

// POST /api/plugin-auth/check-auth
func (c *Controller) checkAuth(w http.ResponseWriter, r *http.Request) {
	log := c.log(r, svc.OpCheckAuth)

	var req dto.CredentialsRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.CheckAuth(r.Context(), req.PluginID, req.PluginSecret)
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CheckAuthResponse{
		Success:       true,
		Authorized:    res.Authorized,
		RequireReauth: res.RequireReauth,
		Username:      res.Username,
		RollingKey:    res.RollingKey,
	})
}

// POST /api/plugin-auth/validate
// Autentica con las cabeceras del plugin y rota la key como cualquier
// request del plano de datos.
func (c *Controller) validate(w http.ResponseWriter, r *http.Request) {
	p, err := c.validator.Validate(r.Context(), middlewares.CredentialsFromRequest(r))
	if err != nil {
		httperrors.WriteError(w, middlewares.PluginError(err))
		return
	}

	resp := dto.ValidateResponse{Success: true, Username: p.Username}
	if p.Rotated() {
		middlewares.SetRollingKeyHeaders(w, p.NewRollingKey, p.KeyVersion)
		resp.NewRollingKey = p.NewRollingKey
		resp.KeyVersion = p.KeyVersion
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// POST /api/plugin-auth/revoke (sesión)
func (c *Controller) revoke(w http.ResponseWriter, r *http.Request) {
	log := c.log(r, svc.OpRevoke)

	var req dto.RevokeRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	username, err := sessionUser(r, req.Username)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.Revoke(r.Context(), req.PluginID, username); err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// POST /api/plugin-auth/list (sesión)
func (c *Controller) list(w http.ResponseWriter, r *http.Request) {
	log := c.log(r, svc.OpList)

	var req dto.ListRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	username, err := sessionUser(r, req.Username)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	items, err := c.service.List(r.Context(), username)
	if err != nil {
		c.handleServiceError(w, err, log)
		return
	}

	out := make([]dto.PluginSummary, 0, len(items))
	for _, it := range items {
		out = append(out, dto.PluginSummary{
			ID:                it.ID,
			Authorized:        it.Authorized,
			AuthorizedAt:      it.AuthorizedAt,
			LastSeen:          it.LastSeen,
			RollingKeyVersion: it.RollingKeyVersion,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ListResponse{Success: true, Plugins: out})
}

// sessionUser resuelve el usuario de la operación. El body puede nombrarlo,
// pero nunca a otro que el de la sesión.
func sessionUser(r *http.Request, fromBody string) (string, error) {
	username := middlewares.GetUsername(r.Context())
	if username == "" {
		return "", httperrors.ErrUnauthorized
	}
	if fromBody != "" && fromBody != username {
		return "", httperrors.ErrForbidden.WithDetail("username does not match session")
	}
	return username, nil
}

func (c *Controller) handleServiceError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrUnauthenticated):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("plugin not found"))
	case errors.Is(err, svc.ErrExpired):
		httperrors.WriteError(w, httperrors.ErrAuthRequestExpired)
	case errors.Is(err, svc.ErrUnauthorized):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	case errors.Is(err, svc.ErrRequireReauth):
		httperrors.WriteError(w, httperrors.ErrRequireReauth)
	case errors.Is(err, svc.ErrConcurrentUpdate):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("plugin was modified concurrently, retry"))
	case errors.Is(err, svc.ErrCryptoFailed):
		log.Error("crypto error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	default:
		log.Error("unexpected error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
