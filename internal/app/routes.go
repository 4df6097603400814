package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	accountmod "github.com/dmitrymomot/accountkit/modules/account"
	billingmod "github.com/dmitrymomot/accountkit/modules/billing"
	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/clientip"
	"github.com/dmitrymomot/accountkit/pkg/cookie"
	"github.com/dmitrymomot/accountkit/pkg/httpserver"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/ratelimiter"
	"github.com/dmitrymomot/accountkit/pkg/requestid"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

type routeDeps struct {
	auth       Auth
	provider   billing.Provider
	reconciler *billing.Reconciler
	stores     stores
	service    *accountsvc.Service
	cookies    *cookie.Manager
	limiter    ratelimiter.RateLimiter
}

func (a *App) routes(d routeDeps) http.Handler {
	sessions := accountmod.NewSessions(d.cookies, a.cfg.SessionCookie)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		requestid.Middleware,
		clientip.Middleware(a.cfg.ClientIP),
		a.metrics.Middleware,
	)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(a.log, a.cfg.ReadyTimeout, a.checks...))
	r.Handle("/metrics", a.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(d.auth, a.log, sessions.TokenExtractor(), identity.BearerTokenExtractor))

		billingmod.Mount(r, billingmod.RouterOptions{
			Provider:     d.provider,
			Reconciler:   d.reconciler,
			Entitlements: d.stores.entitlements,
			Links:        d.stores.links,
			BaseURL:      a.cfg.BaseURL,
			Metrics:      a.metrics,
			Logger:       a.log,
		})
		accountmod.Mount(r, accountmod.RouterOptions{
			Service:  d.service,
			Sessions: sessions,
			BaseURL:  a.cfg.BaseURL,
			Limiter:  d.limiter,
			Metrics:  a.metrics,
			Logger:   a.log,
		})
	})
	return r
}
