package billing_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/modules/billing"
	core "github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/billing/memstore"
	"github.com/dmitrymomot/accountkit/pkg/identity"
)

// fakeProvider accepts payloads of the form "<event id>" with header
// X-Test-Signature: ok and returns the event registered for that id.
type fakeProvider struct {
	mu        sync.Mutex
	events    map[string]core.Event
	subs      map[string]*core.SubscriptionDetail
	checkouts []core.CheckoutRequest
	portals   []string
	fail      bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: map[string]core.Event{}, subs: map[string]*core.SubscriptionDetail{}}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) VerifyEvent(_ context.Context, payload []byte, header http.Header) (core.Event, error) {
	switch header.Get("X-Test-Signature") {
	case "":
		return core.Event{}, core.ErrMissingSignature
	case "ok":
	default:
		return core.Event{}, core.ErrInvalidSignature
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, ok := p.events[string(payload)]
	if !ok {
		return core.Event{}, core.ErrMalformedEvent
	}
	return ev, nil
}

func (p *fakeProvider) RetrieveSubscription(_ context.Context, id string) (*core.SubscriptionDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subs[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (p *fakeProvider) CreateCheckoutLink(_ context.Context, req core.CheckoutRequest) (*core.CheckoutLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, core.ErrProviderError
	}
	p.checkouts = append(p.checkouts, req)
	return &core.CheckoutLink{URL: "https://pay.example/checkout/cs_1", SessionID: "cs_1"}, nil
}

func (p *fakeProvider) CreatePortalLink(_ context.Context, customerID, returnURL string) (*core.PortalLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, core.ErrProviderError
	}
	p.portals = append(p.portals, customerID+"|"+returnURL)
	return &core.PortalLink{URL: "https://pay.example/portal/" + customerID}, nil
}

type recordedWebhook struct{ kind, outcome string }

type recorder struct {
	mu  sync.Mutex
	got []recordedWebhook
}

func (r *recorder) ObserveWebhook(_, kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, recordedWebhook{kind, outcome})
}

type stubApplier struct{ err error }

func (s stubApplier) Apply(context.Context, core.Event) (core.Outcome, error) { return "", s.err }

type fixture struct {
	provider *fakeProvider
	store    *memstore.Store
	metrics  *recorder
	router   http.Handler
}

func newFixture(t *testing.T, applier billing.Applier) *fixture {
	t.Helper()
	f := &fixture{provider: newFakeProvider(), store: memstore.New(), metrics: &recorder{}}
	if applier == nil {
		applier = core.NewReconciler(f.store, f.store, f.store, f.provider)
	}
	f.router = billing.Router(billing.RouterOptions{
		Provider:     f.provider,
		Reconciler:   applier,
		Entitlements: f.store,
		Links:        f.store,
		BaseURL:      "https://app.example/",
		Metrics:      f.metrics,
	})
	return f
}

func (f *fixture) deliver(payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Test-Signature", signature)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) post(path string, user *identity.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if user != nil {
		req = req.WithContext(identity.WithUser(req.Context(), user, "token"))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	f.provider.subs["sub_1"] = &core.SubscriptionDetail{ID: "sub_1", CustomerID: "cus_1", Status: core.StatusActive, CurrentPeriodEnd: &end}
	f.provider.events["evt_checkout"] = core.Event{
		ID:   "evt_checkout",
		Type: "checkout.session.completed",
		Payload: core.CheckoutCompleted{
			SessionID: "cs_1", UserRef: "user-1", CustomerID: "cus_1", SubscriptionID: "sub_1",
		},
	}

	t.Run("processed then duplicate", func(t *testing.T) {
		rec := f.deliver("evt_checkout", "ok")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true,"status":"processed"}`, rec.Body.String())

		ent, err := f.store.GetEntitlement(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, core.StatusActive, ent.Status)

		rec = f.deliver("evt_checkout", "ok")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true,"status":"duplicate"}`, rec.Body.String())
	})

	t.Run("missing signature", func(t *testing.T) {
		rec := f.deliver("evt_checkout", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"missing_signature"`)
	})

	t.Run("invalid signature", func(t *testing.T) {
		rec := f.deliver("evt_checkout", "forged")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"invalid_signature"`)
	})

	t.Run("malformed payload", func(t *testing.T) {
		rec := f.deliver("garbage", "ok")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"malformed_event"`)
	})

	t.Run("payload too large", func(t *testing.T) {
		rec := f.deliver(strings.Repeat("x", billing.MaxWebhookBody+1), "ok")
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	f.metrics.mu.Lock()
	defer f.metrics.mu.Unlock()
	assert.Contains(t, f.metrics.got, recordedWebhook{"checkout_completed", "processed"})
	assert.Contains(t, f.metrics.got, recordedWebhook{"checkout_completed", "duplicate"})
	assert.Contains(t, f.metrics.got, recordedWebhook{"unverified", "rejected"})
}

func TestWebhook_ApplyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{"in flight", core.ErrEventInFlight, http.StatusConflict, "event_in_flight"},
		{"store failure", errors.Join(core.ErrApplyEvent, errors.New("connection reset")), http.StatusInternalServerError, "processing_failed"},
		{"missing id", core.ErrMissingEventID, http.StatusBadRequest, "malformed_event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, stubApplier{err: tt.err})
			f.provider.events["evt"] = core.Event{ID: "evt", Type: "customer.subscription.updated", Payload: core.Ignored{}}

			rec := f.deliver("evt", "ok")
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"`+tt.key+`"`)
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}
}

func TestCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	user := &identity.User{ID: "user-1", Email: "ada@example.com"}

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		rec := newFixture(t, nil).post("/billing/checkout", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("new customer prefills email", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		rec := f.post("/billing/checkout", user)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://pay.example/checkout/cs_1", rec.Header().Get("Location"))

		require.Len(t, f.provider.checkouts, 1)
		got := f.provider.checkouts[0]
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Empty(t, got.CustomerID)
		assert.Equal(t, "https://app.example/app/account?message=checkout-success", got.SuccessURL)
		assert.Equal(t, "https://app.example/app/account?message=checkout-canceled", got.CancelURL)
	})

	t.Run("existing customer is reused", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		require.NoError(t, f.store.UpsertCustomerLink(ctx, core.CustomerLink{UserID: "user-1", CustomerID: "cus_9"}))

		rec := f.post("/billing/checkout", user)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		require.Len(t, f.provider.checkouts, 1)
		assert.Equal(t, "cus_9", f.provider.checkouts[0].CustomerID)
		assert.Empty(t, f.provider.checkouts[0].Email)
	})

	t.Run("active subscriber goes back to account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		_, err := f.store.UpsertEntitlement(ctx, core.Entitlement{UserID: "user-1", SubscriptionID: "sub_1", Status: core.StatusActive, Revision: time.Now()})
		require.NoError(t, err)

		rec := f.post("/billing/checkout", user)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://app.example/app/account", rec.Header().Get("Location"))
		assert.Empty(t, f.provider.checkouts)
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.provider.fail = true
		rec := f.post("/billing/checkout", user)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "billing_provider_error")
	})
}

func TestPortal(t *testing.T) {
	t.Parallel()
	user := &identity.User{ID: "user-1", Email: "ada@example.com"}

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		rec := newFixture(t, nil).post("/billing/portal", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no customer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		rec := f.post("/billing/portal", user)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://app.example/app/account", rec.Header().Get("Location"))
		assert.Empty(t, f.provider.portals)
	})

	t.Run("customer portal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		require.NoError(t, f.store.UpsertCustomerLink(context.Background(), core.CustomerLink{UserID: "user-1", CustomerID: "cus_1"}))

		rec := f.post("/billing/portal", user)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://pay.example/portal/cus_1", rec.Header().Get("Location"))
		assert.Equal(t, []string{"cus_1|https://app.example/app/account"}, f.provider.portals)
	})
}

func TestRouter_RequiresDependencies(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { billing.Router(billing.RouterOptions{}) })
}
