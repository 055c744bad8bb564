package auth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/noke/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/helpers"
	"github.com/dropDatabas3/noke/internal/http/middlewares"
	svc "github.com/dropDatabas3/noke/internal/http/services/auth"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// MFAController maneja el alta y baja de TOTP del usuario de la sesión.
type MFAController struct {
	service svc.MFAService
}

func NewMFAController(s svc.MFAService) *MFAController {
	return &MFAController{service: s}
}

// Setup maneja POST /api/mfa/totp/setup
func (c *MFAController) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("mfa.totp.setup"))

	username := middlewares.GetUsername(ctx)
	if username == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	res, err := c.service.Setup(ctx, username)
	if err != nil {
		handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SetupTOTPResponse{
		Success:    true,
		Secret:     res.SecretBase32,
		OTPAuthURL: res.OTPAuthURL,
	})
}

// Enable maneja POST /api/mfa/totp/enable
func (c *MFAController) Enable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("mfa.totp.enable"))

	username := middlewares.GetUsername(ctx)
	if username == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.EnableTOTPRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.Enable(ctx, username, strings.TrimSpace(req.Code)); err != nil {
		handleServiceError(w, err, log)
		return
	}

	log.Info("totp enabled")
	helpers.WriteJSON(w, http.StatusOK, dto.EnableTOTPResponse{Success: true, Enabled: true})
}

// Disable maneja POST /api/mfa/totp/disable
func (c *MFAController) Disable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("mfa.totp.disable"))

	username := middlewares.GetUsername(ctx)
	if username == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	if err := c.service.Disable(ctx, username); err != nil {
		handleServiceError(w, err, log)
		return
	}

	log.Info("totp disabled")
	helpers.WriteJSON(w, http.StatusOK, dto.DisableTOTPResponse{Success: true, Disabled: true})
}
