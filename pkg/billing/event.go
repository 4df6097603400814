package billing

import "time"

// Event is a verified provider event normalised into a closed set of payloads.
type Event struct {
	ID         string
	Type       string // provider event type, kept for logging and the ledger
	OccurredAt time.Time
	Payload    Payload
}

// Payload is implemented only by the payload types of this package.
type Payload interface {
	payload()
}

// CheckoutCompleted is a finished hosted checkout.
// UserRef is the application-supplied reference attached when the checkout was created.
type CheckoutCompleted struct {
	SessionID      string
	UserRef        string
	CustomerID     string
	SubscriptionID string
}

// Subscription carries the subscription fields shared by the lifecycle events.
type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd *time.Time
}

type (
	SubscriptionCreated struct{ Subscription }
	SubscriptionUpdated struct{ Subscription }
	SubscriptionDeleted struct{ Subscription }
)

// Ignored is any event kind the reconciler does not act on.
type Ignored struct{}

func (CheckoutCompleted) payload()   {}
func (SubscriptionCreated) payload() {}
func (SubscriptionUpdated) payload() {}
func (SubscriptionDeleted) payload() {}
func (Ignored) payload()             {}

// Kind returns a stable label for the payload, used in metrics and logs.
func (e Event) Kind() string {
	switch e.Payload.(type) {
	case CheckoutCompleted:
		return "checkout_completed"
	case SubscriptionCreated:
		return "subscription_created"
	case SubscriptionUpdated:
		return "subscription_updated"
	case SubscriptionDeleted:
		return "subscription_deleted"
	default:
		return "ignored"
	}
}
