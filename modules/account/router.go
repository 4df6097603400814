package account

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/accountkit/handler"
	"github.com/dmitrymomot/accountkit/pkg/binder"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/ratelimiter"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

// DeletionRecorder counts account deletion attempts by result.
type DeletionRecorder interface {
	ObserveDeletion(result string)
}

// RouterOptions configures the account routes. Service and Sessions are required.
type RouterOptions struct {
	Service  *accountsvc.Service
	Sessions *Sessions
	BaseURL  string

	// Limiter throttles login, forgot-password and delete per client IP.
	// Nil disables throttling.
	Limiter ratelimiter.RateLimiter
	Metrics DeletionRecorder
	Logger  *slog.Logger
}

type module struct {
	svc      *accountsvc.Service
	sessions *Sessions
	baseURL  string
	metrics  DeletionRecorder
	log      *slog.Logger
	onError  handler.ErrorHandler[handler.Context]
}

// Router serves the auth endpoints under /auth and the account page under
// /app/account. Handlers accept JSON or form bodies.
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	Mount(r, opts)
	return r
}

// Mount registers the account routes on r.
func Mount(r chi.Router, opts RouterOptions) {
	if opts.Service == nil || opts.Sessions == nil {
		panic("account: Service and Sessions are required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	m := &module{
		svc:      opts.Service,
		sessions: opts.Sessions,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		metrics:  opts.Metrics,
		log:      log.With(logger.Component("account.http")),
	}
	m.onError = handler.NewErrorHandler(m.log)

	throttle := func(name string) func(http.Handler) http.Handler {
		if opts.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimiter.Middleware(opts.Limiter,
			ratelimiter.Composite(ratelimiter.Static(name), ratelimiter.ByClientIP),
			ratelimiter.WithErrorResponder(m.rateLimited),
		)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", wrap(m, m.signUp))
		r.With(throttle("login")).Post("/login", wrap(m, m.login))
		r.Post("/logout", wrap(m, m.logout))
		r.With(throttle("forgot-password")).Post("/forgot-password", wrap(m, m.forgotPassword))
		r.Post("/reset-password", wrap(m, m.resetPassword))
	})
	r.Route("/app/account", func(r chi.Router) {
		r.Get("/", wrap(m, m.overview))
		r.With(throttle("delete-account")).Post("/delete", wrap(m, m.deleteAccount))
	})
}

// wrap binds JSON or form bodies into R and routes errors through m.onError.
func wrap[R any](m *module, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, R](m.onError),
	)
}

func (m *module) rateLimited(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result, err error) {
	if err != nil {
		m.log.ErrorContext(r.Context(), "rate limiter failed", logger.Error(err))
		_ = handler.JSONError(handler.NewHTTPError(http.StatusInternalServerError, "internal_error")).Render(w, r)
		return
	}
	_ = handler.JSONError(toHTTPError(accountsvc.ErrTooManyRequests)).Render(w, r)
}
