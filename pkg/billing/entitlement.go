package billing

import "time"

// Subscription statuses with special meaning to the deletion policy and the
// account page. Any other provider status is carried through as an opaque string.
const (
	StatusActive            = "active"
	StatusCanceled          = "canceled"
	StatusIncompleteExpired = "incomplete_expired"
	StatusPaused            = "paused"
)

// Entitlement is the local record of a user's subscription as last reconciled
// from the billing provider. At most one exists per user.
type Entitlement struct {
	UserID           string
	SubscriptionID   string
	Status           string
	CurrentPeriodEnd *time.Time
	UpdatedAt        time.Time

	// Revision is the provider-side time of the fact this row reflects.
	// Writes carrying an older revision than the stored one are skipped.
	Revision time.Time
}

// IsActive reports whether the entitlement grants paid access.
func (e *Entitlement) IsActive() bool {
	return e != nil && e.Status == StatusActive
}

// CustomerLink maps a user to the billing provider's customer identifier.
type CustomerLink struct {
	UserID     string
	CustomerID string
	CreatedAt  time.Time
}

// ProcessedEvent is a ledger record for one provider event identifier.
type ProcessedEvent struct {
	EventID     string
	EventType   string
	State       EventState
	ClaimToken  string
	ClaimedAt   time.Time
	ExpiresAt   time.Time
	ProcessedAt *time.Time
}

// EventState is the lifecycle of a ledger record.
type EventState string

const (
	EventStateProcessing EventState = "processing"
	EventStateProcessed  EventState = "processed"
)

// SubscriptionDetail is a subscription as returned by the provider's
// retrieve-by-id call.
type SubscriptionDetail struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd *time.Time
}
