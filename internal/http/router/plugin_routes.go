package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	mw "github.com/dropDatabas3/noke/internal/http/middlewares"
)

// registerPluginRoutes registra el plano de datos /api/plugin/*. Cada
// request autenticada en modo rolling rota la key.
func registerPluginRoutes(r chi.Router, d Deps) {
	c := d.Controllers.Plugin

	r.Route("/plugin", func(r chi.Router) {
		r.Use(mw.Use(
			d.rateLimit("plugin", d.General, mw.IPPathRateKey),
			mw.RequirePlugin(d.Validator),
		)...)

		read := r.With(mw.Use(mw.RequirePermission(repository.PermEntriesRead))...)
		read.Get("/entries", c.Entries)
		read.Post("/entries", c.Entries)
		read.Get("/search", c.Search)
		read.Post("/search", c.Search)

		r.With(mw.Use(mw.RequirePermission(repository.PermGenerate))...).Post("/generate", c.Generate)
	})
}
