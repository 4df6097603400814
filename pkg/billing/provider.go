package billing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Provider is a billing provider integration. Implementations wrap the
// provider's official SDK and normalise its events into Event.
type Provider interface {
	WebhookVerifier
	SubscriptionFetcher

	// Name identifies the provider in logs and metrics.
	Name() string

	// CreateCheckoutLink starts a hosted checkout for a subscription.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// CreatePortalLink opens the provider's customer portal.
	CreatePortalLink(ctx context.Context, customerID, returnURL string) (*PortalLink, error)
}

// WebhookVerifier authenticates a webhook delivery and decodes it.
// It returns ErrMissingSignature, ErrInvalidSignature or ErrMalformedEvent
// (possibly joined with the cause) when the delivery must be rejected.
type WebhookVerifier interface {
	VerifyEvent(ctx context.Context, payload []byte, header http.Header) (Event, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	UserID     string // application reference echoed back in the completion event
	CustomerID string // existing provider customer to reuse, optional
	Email      string // prefill when no customer exists yet
	SuccessURL string
	CancelURL  string
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string
	SessionID string
}

// PortalLink is a pre-authenticated customer portal session.
type PortalLink struct {
	URL string
}

// Mode selects the provider credentials in use.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

// ParseMode accepts "sandbox" or "live"; empty means sandbox.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSandbox, "":
		return ModeSandbox, nil
	case ModeLive:
		return ModeLive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProviderEnvironment, s)
	}
}
