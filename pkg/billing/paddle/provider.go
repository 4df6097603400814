// Package paddle adapts Paddle Billing to billing.Provider using the official SDK.
package paddle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

const signatureHeader = "Paddle-Signature"

// Provider implements billing.Provider for Paddle.
type Provider struct {
	priceID  string
	verifier *paddlesdk.WebhookVerifier

	createTransaction   func(context.Context, *paddlesdk.CreateTransactionRequest) (*paddlesdk.Transaction, error)
	createPortalSession func(context.Context, *paddlesdk.CreateCustomerPortalSessionRequest) (*paddlesdk.CustomerPortalSession, error)
	getSubscription     func(context.Context, *paddlesdk.GetSubscriptionRequest) (*paddlesdk.Subscription, error)
}

var _ billing.Provider = (*Provider)(nil)

// New creates a Paddle provider against the sandbox or live API.
func New(creds Credentials) (*Provider, error) {
	if creds.APIKey == "" {
		return nil, billing.ErrMissingAPIKey
	}
	if creds.PriceID == "" {
		return nil, billing.ErrMissingPriceID
	}
	if creds.WebhookSecret == "" {
		return nil, billing.ErrMissingWebhookSecret
	}

	var (
		client *paddlesdk.SDK
		err    error
	)
	switch creds.Mode {
	case billing.ModeSandbox, "":
		client, err = paddlesdk.NewSandbox(creds.APIKey)
	case billing.ModeLive:
		client, err = paddlesdk.New(creds.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", billing.ErrInvalidProviderEnvironment, creds.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Provider{
		priceID:             creds.PriceID,
		verifier:            paddlesdk.NewWebhookVerifier(creds.WebhookSecret),
		createTransaction:   client.TransactionsClient.CreateTransaction,
		createPortalSession: client.CustomerPortalSessionsClient.CreateCustomerPortalSession,
		getSubscription:     client.SubscriptionsClient.GetSubscription,
	}, nil
}

func (p *Provider) Name() string { return "paddle" }

// CreateCheckoutLink creates a draft transaction and returns its hosted checkout URL.
// The user id travels in custom_data and comes back on transaction.completed.
func (p *Provider) CreateCheckoutLink(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	if req.UserID == "" {
		return nil, billing.ErrMissingUserID
	}

	item := paddlesdk.NewCreateTransactionItemsTransactionItemFromCatalog(&paddlesdk.TransactionItemFromCatalog{
		PriceID:  p.priceID,
		Quantity: 1,
	})
	txReq := &paddlesdk.CreateTransactionRequest{
		Items:      []paddlesdk.CreateTransactionItems{*item},
		CustomData: paddlesdk.CustomData{"user_id": req.UserID},
	}
	if req.CustomerID != "" {
		txReq.CustomerID = paddlesdk.PtrTo(req.CustomerID)
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddlesdk.TransactionCheckout{URL: paddlesdk.PtrTo(req.SuccessURL)}
	}

	tx, err := p.createTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(billing.ErrProviderError, err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, billing.ErrNoCheckoutURL
	}
	return &billing.CheckoutLink{URL: *tx.Checkout.URL, SessionID: tx.ID}, nil
}

// CreatePortalLink returns the portal overview URL. Paddle has no return URL parameter.
func (p *Provider) CreatePortalLink(ctx context.Context, customerID, _ string) (*billing.PortalLink, error) {
	if customerID == "" {
		return nil, billing.ErrMissingCustomerID
	}

	session, err := p.createPortalSession(ctx, &paddlesdk.CreateCustomerPortalSessionRequest{CustomerID: customerID})
	if err != nil {
		return nil, errors.Join(billing.ErrProviderError, err)
	}
	if session.URLs.General.Overview == "" {
		return nil, billing.ErrNoPortalURL
	}
	return &billing.PortalLink{URL: session.URLs.General.Overview}, nil
}

func (p *Provider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionDetail, error) {
	sub, err := p.getSubscription(ctx, &paddlesdk.GetSubscriptionRequest{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, fmt.Errorf("paddle subscription %s: %w", subscriptionID, err)
	}

	detail := &billing.SubscriptionDetail{
		ID:         sub.ID,
		CustomerID: sub.CustomerID,
		Status:     string(sub.Status),
	}
	if sub.CurrentBillingPeriod != nil {
		detail.CurrentPeriodEnd = parseTime(sub.CurrentBillingPeriod.EndsAt)
	}
	return detail, nil
}

// VerifyEvent rebuilds a request for the SDK verifier and decodes the notification.
func (p *Provider) VerifyEvent(ctx context.Context, payload []byte, header http.Header) (billing.Event, error) {
	sig := header.Get(signatureHeader)
	if sig == "" {
		return billing.Event{}, billing.ErrMissingSignature
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return billing.Event{}, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set(signatureHeader, sig)

	ok, err := p.verifier.Verify(req)
	if err != nil {
		return billing.Event{}, errors.Join(billing.ErrInvalidSignature, err)
	}
	if !ok {
		return billing.Event{}, billing.ErrInvalidSignature
	}

	return decodeEvent(payload)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
