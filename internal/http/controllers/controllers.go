// Package controllers es el composition root de los controllers HTTP.
//
// Cada dominio vive en su sub-paquete (controllers/{dominio}) y recibe
// únicamente los services que usa. El flujo de inicialización es:
//
//	svcs  := services.New(deps)      // internal/http/services
//	ctrls := controllers.New(svcs)   // este paquete
//	h     := router.New(router.Deps{Controllers: ctrls, ...})
package controllers

import (
	"github.com/dropDatabas3/noke/internal/http/controllers/auth"
	"github.com/dropDatabas3/noke/internal/http/controllers/health"
	"github.com/dropDatabas3/noke/internal/http/controllers/plugin"
	"github.com/dropDatabas3/noke/internal/http/controllers/pluginauth"
	"github.com/dropDatabas3/noke/internal/http/controllers/tokens"
	"github.com/dropDatabas3/noke/internal/http/services"
)

// Controllers agrupa todos los controllers por dominio.
type Controllers struct {
	PluginAuth *pluginauth.Controller
	Plugin     *plugin.Controller
	Tokens     *tokens.Controller
	Auth       *auth.Controllers
	Health     *health.HealthController
}

// New crea el agregador de controllers.
func New(s *services.Services) *Controllers {
	return &Controllers{
		PluginAuth: pluginauth.NewController(s.PluginAuth),
		Plugin:     plugin.NewController(s.PluginData),
		Tokens:     tokens.NewController(s.Tokens),
		Auth:       auth.NewControllers(s.Auth),
		Health:     health.NewHealthController(s.Health),
	}
}
