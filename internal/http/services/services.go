// Package services es el composition root de los services HTTP.
//
// Cada dominio vive en su sub-paquete (services/{dominio}) con su propio
// Deps y constructor. Este paquete solo reparte la infraestructura común:
//
//	svcs := services.New(services.Deps{Store: conn, Cache: c, Box: box, ...})
//	svcs.PluginAuth.Validator, svcs.Auth.Account, svcs.Tokens, etc.
package services

import (
	"time"

	"github.com/dropDatabas3/noke/internal/cache"
	"github.com/dropDatabas3/noke/internal/http/services/auth"
	"github.com/dropDatabas3/noke/internal/http/services/health"
	"github.com/dropDatabas3/noke/internal/http/services/pluginauth"
	"github.com/dropDatabas3/noke/internal/http/services/plugindata"
	"github.com/dropDatabas3/noke/internal/http/services/tokens"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/security/password"
	"github.com/dropDatabas3/noke/internal/store"
)

// Cipher cifra y descifra secretos en reposo. *secretbox.Box lo implementa.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(value string) (string, error)
}

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	// ─── Infraestructura ───
	Store   store.AdapterConnection
	Cache   cache.Client
	Cipher  Cipher
	Session *auth.SessionIssuer
	Metrics *metrics.Metrics // nil = sin métricas

	// ─── Configuración ───
	PublicBaseURL  string
	PasswordPolicy password.Policy
	TOTPIssuer     string
	TOTPWindow     int

	// ─── Health Check ───
	HealthDeps health.Deps

	Now func() time.Time // nil = time.Now
}

// Services agrupa todos los sub-services por dominio.
type Services struct {
	PluginAuth pluginauth.Services
	PluginData plugindata.Service
	Tokens     tokens.Service
	Auth       auth.Services
	Health     health.HealthService
}

// New crea el agregador de services.
func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Services{
		PluginAuth: pluginauth.NewServices(pluginauth.Deps{
			Plugins:       d.Store.Plugins(),
			Tokens:        d.Store.APITokens(),
			Cipher:        d.Cipher,
			PublicBaseURL: d.PublicBaseURL,
			Metrics:       d.Metrics,
			Now:           d.Now,
		}),
		PluginData: plugindata.NewService(plugindata.Deps{
			Entries: d.Store.Entries(),
			Cipher:  d.Cipher,
		}),
		Tokens: tokens.NewService(d.Store.APITokens(), d.Now),
		Auth: auth.NewServices(auth.Deps{
			Users:          d.Store.Users(),
			Cache:          d.Cache,
			Cipher:         d.Cipher,
			Session:        d.Session,
			PasswordPolicy: d.PasswordPolicy,
			TOTPIssuer:     d.TOTPIssuer,
			TOTPWindow:     d.TOTPWindow,
			Now:            d.Now,
		}),
		Health: health.NewHealthService(d.HealthDeps),
	}
}
