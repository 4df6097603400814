package billing

import (
	"context"
	"time"
)

// EntitlementStore persists entitlements keyed by user.
type EntitlementStore interface {
	// GetEntitlement returns ErrEntitlementNotFound when the user has none.
	GetEntitlement(ctx context.Context, userID string) (*Entitlement, error)

	// UpsertEntitlement inserts or replaces the user's entitlement unless the
	// stored revision is newer than e.Revision. It reports whether the write applied.
	UpsertEntitlement(ctx context.Context, e Entitlement) (bool, error)

	// UpdateEntitlementStatus changes only the status of an existing row, with the
	// same revision rule as UpsertEntitlement. A missing row is not an error.
	UpdateEntitlementStatus(ctx context.Context, userID, status string, revision, updatedAt time.Time) (bool, error)

	DeleteEntitlement(ctx context.Context, userID string) error
}

// CustomerLinkStore persists user to billing-customer mappings.
type CustomerLinkStore interface {
	// GetCustomerLink returns ErrCustomerLinkNotFound when the user has none.
	GetCustomerLink(ctx context.Context, userID string) (*CustomerLink, error)

	// FindUserByCustomer returns ErrCustomerLinkNotFound for unknown customers.
	FindUserByCustomer(ctx context.Context, customerID string) (string, error)

	// UpsertCustomerLink creates or replaces the mapping for link.UserID.
	UpsertCustomerLink(ctx context.Context, link CustomerLink) error

	DeleteCustomerLink(ctx context.Context, userID string) error
}

// Ledger is the event deduplication ledger.
//
// Claim inserts a processing record for the event id that expires after ttl
// and returns the token identifying this claim. Inserting an id that already
// exists is a conflict, reported as ErrEventProcessed when the record was
// marked processed, or ErrEventInFlight while another delivery holds an
// unexpired claim. Expired claims are taken over under a new token.
//
// MarkProcessed and Release act only while the token still holds the claim.
// MarkProcessed returns ErrEventNotClaimed otherwise; Release does nothing.
type Ledger interface {
	Claim(ctx context.Context, eventID, eventType string, ttl time.Duration) (string, error)
	MarkProcessed(ctx context.Context, eventID, token string) error
	Release(ctx context.Context, eventID, token string) error
}

// SubscriptionFetcher retrieves a subscription from the billing provider.
type SubscriptionFetcher interface {
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionDetail, error)
}
