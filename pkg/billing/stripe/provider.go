// Package stripe adapts Stripe Billing to billing.Provider using stripe-go.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

const signatureHeader = "Stripe-Signature"

// Provider talks to the Stripe API with one secret key and one subscription price.
type Provider struct {
	priceID       string
	webhookSecret string
	tolerance     time.Duration

	createCheckoutSession func(*stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
	createPortalSession   func(*stripelib.BillingPortalSessionParams) (*stripelib.BillingPortalSession, error)
	getSubscription       func(string, *stripelib.SubscriptionParams) (*stripelib.Subscription, error)
}

var _ billing.Provider = (*Provider)(nil)

type Option func(*Provider)

// WithTolerance sets how old a signed webhook timestamp may be. Defaults to stripe-go's 5 minutes.
func WithTolerance(d time.Duration) Option {
	return func(p *Provider) { p.tolerance = d }
}

// New builds a provider from resolved credentials.
func New(creds Credentials, opts ...Option) (*Provider, error) {
	if creds.SecretKey == "" {
		return nil, billing.ErrMissingAPIKey
	}
	if creds.PriceID == "" {
		return nil, billing.ErrMissingPriceID
	}
	if creds.WebhookSecret == "" {
		return nil, billing.ErrMissingWebhookSecret
	}

	sc := client.New(creds.SecretKey, nil)
	p := &Provider{
		priceID:               creds.PriceID,
		webhookSecret:         creds.WebhookSecret,
		createCheckoutSession: sc.CheckoutSessions.New,
		createPortalSession:   sc.BillingPortalSessions.New,
		getSubscription:       sc.Subscriptions.Get,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return "stripe" }

func (p *Provider) CreateCheckoutLink(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	if req.UserID == "" {
		return nil, billing.ErrMissingUserID
	}

	params := &stripelib.CheckoutSessionParams{
		Mode: stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{Price: stripelib.String(p.priceID), Quantity: stripelib.Int64(1)},
		},
		SuccessURL:        stripelib.String(req.SuccessURL),
		CancelURL:         stripelib.String(req.CancelURL),
		ClientReferenceID: stripelib.String(req.UserID),
		SubscriptionData: &stripelib.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": req.UserID},
		},
	}
	params.AddMetadata("user_id", req.UserID)
	switch {
	case req.CustomerID != "":
		params.Customer = stripelib.String(req.CustomerID)
	case req.Email != "":
		params.CustomerEmail = stripelib.String(req.Email)
	}
	params.Context = ctx

	session, err := p.createCheckoutSession(params)
	if err != nil {
		return nil, errors.Join(billing.ErrProviderError, err)
	}
	if session.URL == "" {
		return nil, billing.ErrNoCheckoutURL
	}
	return &billing.CheckoutLink{URL: session.URL, SessionID: session.ID}, nil
}

func (p *Provider) CreatePortalLink(ctx context.Context, customerID, returnURL string) (*billing.PortalLink, error) {
	if customerID == "" {
		return nil, billing.ErrMissingCustomerID
	}

	params := &stripelib.BillingPortalSessionParams{
		Customer:  stripelib.String(customerID),
		ReturnURL: stripelib.String(returnURL),
	}
	params.Context = ctx

	session, err := p.createPortalSession(params)
	if err != nil {
		return nil, errors.Join(billing.ErrProviderError, err)
	}
	if session.URL == "" {
		return nil, billing.ErrNoPortalURL
	}
	return &billing.PortalLink{URL: session.URL}, nil
}

func (p *Provider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionDetail, error) {
	params := &stripelib.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.getSubscription(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe subscription %s: %w", subscriptionID, err)
	}

	detail := &billing.SubscriptionDetail{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		detail.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.CurrentPeriodEnd > 0 {
				detail.CurrentPeriodEnd = unixTime(item.CurrentPeriodEnd)
				break
			}
		}
	}
	return detail, nil
}

// VerifyEvent checks the Stripe-Signature header and decodes the event.
func (p *Provider) VerifyEvent(_ context.Context, payload []byte, header http.Header) (billing.Event, error) {
	sig := header.Get(signatureHeader)
	if sig == "" {
		return billing.Event{}, billing.ErrMissingSignature
	}
	return p.parseEvent(payload, sig)
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
