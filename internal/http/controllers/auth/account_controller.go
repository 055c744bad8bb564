// Package auth contiene los controllers de cuenta (/api/auth/*) y MFA
// (/api/mfa/totp/*).
package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	dto "github.com/dropDatabas3/noke/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/helpers"
	svc "github.com/dropDatabas3/noke/internal/http/services/auth"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/security/password"
)

// Controllers agrupa los controllers del dominio auth.
type Controllers struct {
	Account *AccountController
	MFA     *MFAController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Account: NewAccountController(s.Account),
		MFA:     NewMFAController(s.MFA),
	}
}

// AccountController maneja registro y login web.
type AccountController struct {
	service svc.AccountService
}

func NewAccountController(s svc.AccountService) *AccountController {
	return &AccountController{service: s}
}

// Register maneja POST /api/auth/register
func (c *AccountController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.register"))

	var req dto.CredentialsRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	if err := c.service.Register(ctx, username, req.Password); err != nil {
		handleServiceError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.RegisterResponse{Success: true, Username: username})
}

// Login maneja POST /api/auth/login. Con TOTP activo responde solo el
// mfaToken del segundo paso.
func (c *AccountController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.login"))

	var req dto.CredentialsRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.Login(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		handleServiceError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, loginResponse(res))
}

// VerifyMFA maneja POST /api/auth/verify-mfa
func (c *AccountController) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.verify_mfa"))

	var req dto.VerifyMFARequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.VerifyMFA(ctx, req.MFAToken, strings.TrimSpace(req.Code))
	if err != nil {
		handleServiceError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, loginResponse(res))
}

func loginResponse(res *svc.LoginResult) dto.LoginResponse {
	if res.MFARequired {
		return dto.LoginResponse{Success: true, MFARequired: true, MFAToken: res.MFAToken}
	}
	return dto.LoginResponse{
		Success:      true,
		Username:     res.Username,
		SessionToken: res.SessionToken,
		ExpiresIn:    int64(res.ExpiresIn.Seconds()),
	}
}

// handleServiceError es compartido por los dos controllers del paquete.
func handleServiceError(w http.ResponseWriter, err error, log *zap.Logger) {
	var pe *password.PolicyError
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrInvalidUsername):
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("username"))
	case errors.As(err, &pe):
		httperrors.WriteError(w, httperrors.ErrPasswordTooWeak.WithDetail(strings.Join(pe.Reasons, ",")))
	case errors.Is(err, svc.ErrPolicyViolation):
		httperrors.WriteError(w, httperrors.ErrPasswordTooWeak)
	case errors.Is(err, svc.ErrUsernameTaken):
		httperrors.WriteError(w, httperrors.ErrUsernameTaken)
	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrMFATokenNotFound):
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("mfa token expired or not found"))
	case errors.Is(err, svc.ErrInvalidCode):
		httperrors.WriteError(w, httperrors.ErrInvalidMFACode)
	case errors.Is(err, svc.ErrMFANotPending):
		httperrors.WriteError(w, httperrors.ErrMFANotPending)
	case errors.Is(err, svc.ErrMFAAlreadyEnabled):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("totp already enabled"))
	case errors.Is(err, svc.ErrMFANotEnabled):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("totp not enabled"))
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("user not found"))
	case errors.Is(err, svc.ErrCryptoFailed):
		log.Error("crypto error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	default:
		log.Error("unexpected error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
