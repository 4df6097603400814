package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/accountkit/handler"
	core "github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/logger"
)

type webhookResult struct {
	Received bool   `json:"received"`
	Status   string `json:"status"`
}

// Metric outcomes beyond core.Outcome values.
const (
	outcomeRejected = "rejected"
	outcomeInFlight = "in_flight"
	outcomeFailed   = "failed"
	outcomeTooLarge = "too_large"
	kindUnverified  = "unverified"
)

// webhook verifies and applies one delivery. 4xx answers tell the provider
// not to retry; 409 and 5xx ask for redelivery.
func (m *module) webhook(ctx handler.Context, _ struct{}) handler.Response {
	start := time.Now()
	r := ctx.Request()

	payload, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, MaxWebhookBody))
	if err != nil {
		m.observe(kindUnverified, outcomeTooLarge, start)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.log.WarnContext(ctx, "webhook payload too large", slog.Int64("limit", tooLarge.Limit))
			return handler.JSONError(errPayloadTooLarge)
		}
		m.log.WarnContext(ctx, "failed to read webhook payload", logger.Error(err))
		return handler.JSONError(errMalformedEvent)
	}

	ev, err := m.provider.VerifyEvent(ctx, payload, r.Header)
	if err != nil {
		m.observe(kindUnverified, outcomeRejected, start)
		m.log.WarnContext(ctx, "webhook rejected", logger.Error(err))
		switch {
		case errors.Is(err, core.ErrMissingSignature):
			return handler.JSONError(errMissingSignature)
		case errors.Is(err, core.ErrInvalidSignature):
			return handler.JSONError(errInvalidSignature)
		default:
			return handler.JSONError(errMalformedEvent)
		}
	}

	log := m.log.With(logger.EventID(ev.ID), logger.EventType(ev.Type))
	outcome, err := m.reconciler.Apply(ctx, ev)
	switch {
	case err == nil:
		m.observe(ev.Kind(), string(outcome), start)
		return handler.RawJSON(webhookResult{Received: true, Status: string(outcome)})
	case errors.Is(err, core.ErrMissingEventID):
		m.observe(ev.Kind(), outcomeRejected, start)
		log.WarnContext(ctx, "webhook event without id")
		return handler.JSONError(errMalformedEvent)
	case errors.Is(err, core.ErrEventInFlight):
		m.observe(ev.Kind(), outcomeInFlight, start)
		log.InfoContext(ctx, "webhook event already in flight")
		return handler.JSONError(errInFlight)
	default:
		m.observe(ev.Kind(), outcomeFailed, start)
		log.ErrorContext(ctx, "failed to process webhook event", logger.Error(err))
		return handler.JSONError(errProcessing)
	}
}

func (m *module) observe(kind, outcome string, start time.Time) {
	if m.metrics != nil {
		m.metrics.ObserveWebhook(m.provider.Name(), kind, outcome, time.Since(start))
	}
}
