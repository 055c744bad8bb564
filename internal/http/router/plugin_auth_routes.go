package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/noke/internal/http/middlewares"
	"github.com/dropDatabas3/noke/internal/http/services/pluginauth"
)

// registerPluginAuthRoutes registra POST /api/plugin-auth/{op}. El límite
// va por IP y path para que el polling de check-auth no agote el resto.
func registerPluginAuthRoutes(r chi.Router, d Deps) {
	c := d.Controllers.PluginAuth

	r.Route("/plugin-auth", func(r chi.Router) {
		r.Use(mw.Use(d.rateLimit("plugin_auth", d.PluginAuth, mw.IPPathRateKey))...)

		for _, op := range pluginauth.Operations() {
			h := c.Handle(op)
			if op.RequiresSession() {
				r.With(mw.Use(mw.RequireSession(d.Session))...).Post("/"+op.String(), h)
				continue
			}
			r.Post("/"+op.String(), h)
		}
	})
}
