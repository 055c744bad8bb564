// Package auth contiene los DTOs de /api/auth/* y /api/mfa/totp/*.
package auth

// CredentialsRequest es el body de register y login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse es la respuesta de POST /api/auth/register.
type RegisterResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

// LoginResponse es la respuesta de login y verify-mfa. Con MFA activo login
// solo trae MFARequired y MFAToken.
type LoginResponse struct {
	Success      bool   `json:"success"`
	MFARequired  bool   `json:"mfaRequired,omitempty"`
	MFAToken     string `json:"mfaToken,omitempty"`
	Username     string `json:"username,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"` // segundos
}

// VerifyMFARequest es el body de POST /api/auth/verify-mfa.
type VerifyMFARequest struct {
	MFAToken string `json:"mfaToken" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

// SetupTOTPResponse es la respuesta de POST /api/mfa/totp/setup.
type SetupTOTPResponse struct {
	Success    bool   `json:"success"`
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// EnableTOTPRequest es el body de POST /api/mfa/totp/enable.
type EnableTOTPRequest struct {
	Code string `json:"code" validate:"required"`
}

// EnableTOTPResponse es la respuesta de enable.
type EnableTOTPResponse struct {
	Success bool `json:"success"`
	Enabled bool `json:"enabled"`
}

// DisableTOTPResponse es la respuesta de POST /api/mfa/totp/disable.
type DisableTOTPResponse struct {
	Success  bool `json:"success"`
	Disabled bool `json:"disabled"`
}
