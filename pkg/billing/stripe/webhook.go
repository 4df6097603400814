package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
)

// checkoutSession is the subset of a checkout.session object we read.
type checkoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

// subscription is the subset of a subscription object we read. Newer API
// versions moved current_period_end onto the items.
type subscription struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

func (s subscription) periodEnd() int64 {
	if s.CurrentPeriodEnd > 0 {
		return s.CurrentPeriodEnd
	}
	if len(s.Items.Data) > 0 {
		return s.Items.Data[0].CurrentPeriodEnd
	}
	return 0
}

func (p *Provider) parseEvent(payload []byte, sig string) (billing.Event, error) {
	opts := webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true}
	if p.tolerance > 0 {
		opts.Tolerance = p.tolerance
	}

	ev, err := webhook.ConstructEventWithOptions(payload, sig, p.webhookSecret, opts)
	switch {
	case errors.Is(err, webhook.ErrNotSigned):
		return billing.Event{}, billing.ErrMissingSignature
	case errors.Is(err, webhook.ErrInvalidHeader),
		errors.Is(err, webhook.ErrNoValidSignature),
		errors.Is(err, webhook.ErrTooOld):
		return billing.Event{}, errors.Join(billing.ErrInvalidSignature, err)
	case err != nil:
		return billing.Event{}, errors.Join(billing.ErrMalformedEvent, err)
	}

	return decodeEvent(ev)
}

func decodeEvent(ev stripelib.Event) (billing.Event, error) {
	out := billing.Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Payload: billing.Ignored{},
	}
	if t := unixTime(ev.Created); t != nil {
		out.OccurredAt = *t
	}
	if ev.ID == "" {
		return out, billing.ErrMissingEventID
	}

	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}

	switch out.Type {
	case eventCheckoutCompleted:
		var s checkoutSession
		if err := unmarshal(raw, &s); err != nil {
			return out, err
		}
		ref := s.ClientReferenceID
		if ref == "" {
			ref = s.Metadata["user_id"]
		}
		out.Payload = billing.CheckoutCompleted{
			SessionID:      s.ID,
			UserRef:        ref,
			CustomerID:     s.Customer,
			SubscriptionID: s.Subscription,
		}

	case eventSubscriptionCreated, eventSubscriptionUpdated, eventSubscriptionDeleted:
		var s subscription
		if err := unmarshal(raw, &s); err != nil {
			return out, err
		}
		sub := billing.Subscription{
			ID:               s.ID,
			CustomerID:       s.Customer,
			Status:           s.Status,
			CurrentPeriodEnd: unixTime(s.periodEnd()),
		}
		switch out.Type {
		case eventSubscriptionCreated:
			out.Payload = billing.SubscriptionCreated{Subscription: sub}
		case eventSubscriptionUpdated:
			out.Payload = billing.SubscriptionUpdated{Subscription: sub}
		default:
			out.Payload = billing.SubscriptionDeleted{Subscription: sub}
		}
	}

	return out, nil
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: event has no data object", billing.ErrMalformedEvent)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(billing.ErrMalformedEvent, err)
	}
	return nil
}
