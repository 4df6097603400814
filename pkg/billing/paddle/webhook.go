package paddle

import (
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

const (
	eventTransactionCompleted = "transaction.completed"
	eventSubscriptionCreated  = "subscription.created"
	eventSubscriptionCanceled = "subscription.canceled"
)

// Status-specific notifications carry the full subscription and are applied as updates.
var subscriptionUpdateEvents = map[string]bool{
	"subscription.updated":   true,
	"subscription.activated": true,
	"subscription.past_due":  true,
	"subscription.paused":    true,
	"subscription.resumed":   true,
	"subscription.trialing":  true,
}

type notification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type transaction struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id"`
	SubscriptionID string            `json:"subscription_id"`
	CustomData     map[string]string `json:"custom_data"`
}

type subscription struct {
	ID                   string `json:"id"`
	CustomerID           string `json:"customer_id"`
	Status               string `json:"status"`
	CurrentBillingPeriod *struct {
		EndsAt string `json:"ends_at"`
	} `json:"current_billing_period"`
}

func decodeEvent(payload []byte) (billing.Event, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return billing.Event{}, errors.Join(billing.ErrMalformedEvent, err)
	}

	out := billing.Event{ID: n.EventID, Type: n.EventType, Payload: billing.Ignored{}}
	if t := parseTime(n.OccurredAt); t != nil {
		out.OccurredAt = *t
	}
	if n.EventID == "" {
		return out, billing.ErrMissingEventID
	}

	switch {
	case n.EventType == eventTransactionCompleted:
		var tx transaction
		if err := unmarshal(n.Data, &tx); err != nil {
			return out, err
		}
		out.Payload = billing.CheckoutCompleted{
			SessionID:      tx.ID,
			UserRef:        tx.CustomData["user_id"],
			CustomerID:     tx.CustomerID,
			SubscriptionID: tx.SubscriptionID,
		}

	case n.EventType == eventSubscriptionCreated,
		n.EventType == eventSubscriptionCanceled,
		subscriptionUpdateEvents[n.EventType]:
		var s subscription
		if err := unmarshal(n.Data, &s); err != nil {
			return out, err
		}
		sub := billing.Subscription{ID: s.ID, CustomerID: s.CustomerID, Status: s.Status}
		if s.CurrentBillingPeriod != nil {
			sub.CurrentPeriodEnd = parseTime(s.CurrentBillingPeriod.EndsAt)
		}
		switch n.EventType {
		case eventSubscriptionCreated:
			out.Payload = billing.SubscriptionCreated{Subscription: sub}
		case eventSubscriptionCanceled:
			out.Payload = billing.SubscriptionDeleted{Subscription: sub}
		default:
			out.Payload = billing.SubscriptionUpdated{Subscription: sub}
		}
	}

	return out, nil
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.Join(billing.ErrMalformedEvent, errors.New("notification has no data"))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(billing.ErrMalformedEvent, err)
	}
	return nil
}
