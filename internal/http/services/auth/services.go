// Package auth contiene los services de la cuenta primaria: registro, login
// con segundo factor TOTP y la sesión web que autoriza plugins.
package auth

import (
	"time"

	"github.com/dropDatabas3/noke/internal/cache"
	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/security/password"
)

// Cipher cifra los secretos TOTP en reposo. *secretbox.Box lo implementa.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(value string) (string, error)
}

// Deps contiene las dependencias para crear los services auth.
type Deps struct {
	Users   repository.UserRepository
	Cache   cache.Client
	Cipher  Cipher
	Session *SessionIssuer

	PasswordPolicy password.Policy
	TOTPIssuer     string
	TOTPWindow     int // pasos de 30s aceptados a cada lado

	Now func() time.Time // nil = time.Now
}

// Services agrupa todos los services del dominio auth.
type Services struct {
	Account AccountService
	MFA     MFAService
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	return Services{
		Account: NewAccountService(d),
		MFA:     NewMFAService(d),
	}
}
