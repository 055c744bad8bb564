package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/noke/internal/http/middlewares"
)

// registerAccountRoutes registra cuenta web, MFA y API tokens.
func registerAccountRoutes(r chi.Router, d Deps) {
	a := d.Controllers.Auth
	general := d.rateLimit("general", d.General, mw.IPPathRateKey)
	login := d.rateLimit("login", d.Login, mw.IPOnlyRateKey)
	session := mw.RequireSession(d.Session)

	r.Route("/auth", func(r chi.Router) {
		r.With(mw.Use(general)...).Post("/register", a.Account.Register)
		r.With(mw.Use(login)...).Post("/login", a.Account.Login)
		r.With(mw.Use(login)...).Post("/verify-mfa", a.Account.VerifyMFA)
	})

	r.Route("/mfa/totp", func(r chi.Router) {
		r.Use(mw.Use(general, session)...)
		r.Post("/setup", a.MFA.Setup)
		r.Post("/enable", a.MFA.Enable)
		r.Post("/disable", a.MFA.Disable)
	})

	t := d.Controllers.Tokens
	r.Route("/tokens", func(r chi.Router) {
		r.Use(mw.Use(general, session)...)
		r.Get("/", t.List)
		r.Post("/", t.Create)
		r.Delete("/{tokenId}", t.Delete)
	})
}
