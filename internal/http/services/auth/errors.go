package auth

import "errors"

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrPolicyViolation    = errors.New("password policy violation")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFATokenNotFound   = errors.New("mfa token not found or expired")
	ErrMFANotEnabled      = errors.New("mfa not enabled")
	ErrMFAAlreadyEnabled  = errors.New("mfa already enabled")
	ErrMFANotPending      = errors.New("mfa setup not pending")
	ErrInvalidCode        = errors.New("invalid mfa code")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionInvalid     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrCryptoFailed       = errors.New("auth crypto failed")
	ErrStoreFailed        = errors.New("auth store failed")
)
