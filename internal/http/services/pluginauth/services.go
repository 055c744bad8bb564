// Package pluginauth implementa el protocolo de autorización de plugins
// (register → request-auth → authorize → check-auth) y el validador de
// credenciales del plano de datos (rolling key o token estático).
package pluginauth

import (
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/metrics"
)

// Cipher cifra secretos cortos. *secretbox.Box lo implementa.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(value string) (string, error)
}

// Deps contiene las dependencias para crear los services de pluginauth.
type Deps struct {
	Plugins repository.PluginRepository
	Tokens  repository.APITokenRepository
	Cipher  Cipher

	// PublicBaseURL es la URL del front web donde el usuario aprueba el plugin.
	PublicBaseURL string

	Metrics *metrics.Metrics // nil = sin métricas
	Now     func() time.Time // nil = time.Now
}

// Services agrupa los services del dominio pluginauth.
type Services struct {
	Auth      Service
	Validator Validator
}

// NewServices crea el agregador de services pluginauth.
func NewServices(d Deps) Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	return Services{
		Auth:      NewService(d),
		Validator: NewValidator(d),
	}
}
