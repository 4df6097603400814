package billing

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/accountkit/handler"
	core "github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/logger"
)

// MaxWebhookBody caps webhook payloads.
const MaxWebhookBody = 1 << 20

// Applier applies verified events; *core.Reconciler implements it.
type Applier interface {
	Apply(ctx context.Context, ev core.Event) (core.Outcome, error)
}

// WebhookRecorder receives one observation per webhook delivery.
type WebhookRecorder interface {
	ObserveWebhook(provider, kind, outcome string, elapsed time.Duration)
}

// RouterOptions configures the billing routes. Provider, Reconciler,
// Entitlements and Links are required.
type RouterOptions struct {
	Provider     core.Provider
	Reconciler   Applier
	Entitlements core.EntitlementStore
	Links        core.CustomerLinkStore
	BaseURL      string // absolute, used for provider return URLs
	Metrics      WebhookRecorder
	Logger       *slog.Logger
}

type module struct {
	provider     core.Provider
	reconciler   Applier
	entitlements core.EntitlementStore
	links        core.CustomerLinkStore
	baseURL      string
	metrics      WebhookRecorder
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

// Router serves POST /webhooks/billing, POST /billing/checkout and
// POST /billing/portal. Checkout and portal read the user stored by
// identity.Middleware.
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	Mount(r, opts)
	return r
}

// Mount registers the billing routes on r.
func Mount(r chi.Router, opts RouterOptions) {
	if opts.Provider == nil || opts.Reconciler == nil || opts.Entitlements == nil || opts.Links == nil {
		panic("billing: Provider, Reconciler, Entitlements and Links are required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	m := &module{
		provider:     opts.Provider,
		reconciler:   opts.Reconciler,
		entitlements: opts.Entitlements,
		links:        opts.Links,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		metrics:      opts.Metrics,
		log:          log.With(logger.Component("billing.http"), logger.Provider(opts.Provider.Name())),
	}
	m.errorHandler = handler.NewErrorHandler(m.log)

	r.Post("/webhooks/billing", handler.Wrap(m.webhook,
		handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
	))
	r.Post("/billing/checkout", handler.Wrap(m.checkout,
		handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
	))
	r.Post("/billing/portal", handler.Wrap(m.portal,
		handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
	))
}

func (m *module) accountURL(query string) string {
	if query == "" {
		return m.baseURL + "/app/account"
	}
	return m.baseURL + "/app/account?" + query
}

var (
	errMissingSignature = handler.HTTPError{Code: http.StatusBadRequest, Key: "missing_signature", Message: "Missing webhook signature."}
	errInvalidSignature = handler.HTTPError{Code: http.StatusBadRequest, Key: "invalid_signature", Message: "Invalid webhook signature."}
	errMalformedEvent   = handler.HTTPError{Code: http.StatusBadRequest, Key: "malformed_event", Message: "Malformed webhook payload."}
	errPayloadTooLarge  = handler.NewHTTPError(http.StatusRequestEntityTooLarge, "payload_too_large")
	errInFlight         = handler.HTTPError{Code: http.StatusConflict, Key: "event_in_flight", Message: "Event is being processed."}
	errProcessing       = handler.HTTPError{Code: http.StatusInternalServerError, Key: "processing_failed", Message: "Webhook processing failed."}
	errProvider         = handler.HTTPError{Code: http.StatusBadGateway, Key: "billing_provider_error", Message: "Billing provider is unavailable. Please try again."}
)
