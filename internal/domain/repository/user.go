package repository

import (
	"context"
	"time"
)

// User es la cuenta primaria (solo el slice relevante para login y MFA).
type User struct {
	Username     string
	PasswordHash string

	TOTPEnabled       bool
	TOTPSecret        string // cifrado, activo
	TOTPSecretPending string // cifrado, esperando primera verificación
	TOTPLastCounter   *int64 // anti-replay

	CreatedAt time.Time
}

// UserRepository persiste cuentas. Las mutaciones TOTP solo las dispara el
// propio dueño.
type UserRepository interface {
	// Create inserta un usuario. ErrConflict si el username existe.
	Create(ctx context.Context, u *User) error

	// GetByUsername retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePasswordHash reemplaza el hash (rehash de bcrypt a argon2id).
	UpdatePasswordHash(ctx context.Context, username, hash string) error

	// SetPendingTOTP guarda un secreto pendiente (reemplaza el anterior).
	SetPendingTOTP(ctx context.Context, username, secretEnc string) error

	// EnableTOTP mueve pending→activo y limpia pending, solo si el pending
	// almacenado sigue siendo expectedPending. Si no, ErrPreconditionFailed.
	EnableTOTP(ctx context.Context, username, expectedPending string, counter int64) error

	// DisableTOTP limpia ambos secretos y el flag.
	DisableTOTP(ctx context.Context, username string) error

	// MarkTOTPUsed guarda el último contador aceptado si es mayor al actual.
	// Si no lo es, ErrPreconditionFailed (código ya usado).
	MarkTOTPUsed(ctx context.Context, username string, counter int64) error
}
