package billing

import "errors"

var (
	ErrEntitlementNotFound  = errors.New("billing entitlement not found")
	ErrCustomerLinkNotFound = errors.New("billing customer link not found")

	// Ledger outcomes. ErrEventProcessed is the dedup signal: the event was
	// already applied and must be acknowledged without further work.
	ErrEventProcessed  = errors.New("billing event already processed")
	ErrEventInFlight   = errors.New("billing event is being processed by another delivery")
	ErrEventNotClaimed = errors.New("billing event has no ledger claim")

	ErrMissingSignature  = errors.New("billing webhook signature is missing")
	ErrInvalidSignature  = errors.New("billing webhook signature verification failed")
	ErrMalformedEvent    = errors.New("billing webhook payload is malformed")
	ErrMissingEventID    = errors.New("billing event id is required")
	ErrSubscriptionFetch = errors.New("failed to retrieve subscription from billing provider")
	ErrApplyEvent        = errors.New("failed to apply billing event")

	ErrMissingAPIKey              = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret       = errors.New("billing provider webhook secret is required")
	ErrMissingPriceID             = errors.New("billing price ID is required")
	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
	ErrNoCheckoutURL              = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL                = errors.New("no portal URL returned from provider")
	ErrMissingCustomerID          = errors.New("billing customer ID is required")
	ErrMissingUserID              = errors.New("user ID is required")
	ErrProviderError              = errors.New("billing provider error")
)
