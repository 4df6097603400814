// Package storetest holds behaviour tests shared by every billing store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

// Store is a backend implementing all billing persistence contracts.
type Store interface {
	billing.EntitlementStore
	billing.CustomerLinkStore
	billing.Ledger
}

// Run exercises the entitlement, customer link and ledger contracts.
// newStore must return an empty store; ids are unique per subtest so
// shared databases can be reused.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("entitlements", func(t *testing.T) { testEntitlements(t, newStore(t)) })
	t.Run("customer links", func(t *testing.T) { testCustomerLinks(t, newStore(t)) })
	t.Run("ledger", func(t *testing.T) {
		RunLedger(t, func(t *testing.T) billing.Ledger { return newStore(t) })
	})
}

func id(t *testing.T, prefix string) string {
	return prefix + "_" + t.Name() + "_" + time.Now().Format("150405.000000000")
}

func testEntitlements(t *testing.T, s Store) {
	ctx := context.Background()
	user := id(t, "user")
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	end := t0.Add(30 * 24 * time.Hour)

	_, err := s.GetEntitlement(ctx, user)
	require.ErrorIs(t, err, billing.ErrEntitlementNotFound)

	applied, err := s.UpdateEntitlementStatus(ctx, user, billing.StatusCanceled, t0, t0)
	require.NoError(t, err)
	assert.False(t, applied, "status update must not create a row")

	applied, err = s.UpsertEntitlement(ctx, billing.Entitlement{
		UserID: user, SubscriptionID: "sub_1", Status: billing.StatusActive,
		CurrentPeriodEnd: &end, UpdatedAt: t0, Revision: t0,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.GetEntitlement(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", got.SubscriptionID)
	assert.Equal(t, billing.StatusActive, got.Status)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))

	// Older revision is skipped.
	applied, err = s.UpsertEntitlement(ctx, billing.Entitlement{
		UserID: user, SubscriptionID: "sub_1", Status: "past_due",
		UpdatedAt: t0.Add(time.Second), Revision: t0.Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, applied)
	got, err = s.GetEntitlement(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, got.Status)

	// Equal revision applies.
	applied, err = s.UpsertEntitlement(ctx, billing.Entitlement{
		UserID: user, SubscriptionID: "sub_1", Status: "past_due",
		CurrentPeriodEnd: &end, UpdatedAt: t0.Add(time.Second), Revision: t0,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	// Status-only update keeps subscription and period, and updated_at never decreases.
	applied, err = s.UpdateEntitlementStatus(ctx, user, billing.StatusCanceled, t0.Add(time.Minute), t0)
	require.NoError(t, err)
	assert.True(t, applied)
	got, err = s.GetEntitlement(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, got.Status)
	assert.Equal(t, "sub_1", got.SubscriptionID)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Second)))

	applied, err = s.UpdateEntitlementStatus(ctx, user, billing.StatusActive, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, applied, "stale status update must be skipped")

	require.NoError(t, s.DeleteEntitlement(ctx, user))
	_, err = s.GetEntitlement(ctx, user)
	require.ErrorIs(t, err, billing.ErrEntitlementNotFound)
	require.NoError(t, s.DeleteEntitlement(ctx, user))
}

func testCustomerLinks(t *testing.T, s Store) {
	ctx := context.Background()
	user := id(t, "user")
	other := id(t, "other")
	customer := id(t, "cus")

	_, err := s.GetCustomerLink(ctx, user)
	require.ErrorIs(t, err, billing.ErrCustomerLinkNotFound)
	_, err = s.FindUserByCustomer(ctx, customer)
	require.ErrorIs(t, err, billing.ErrCustomerLinkNotFound)

	require.ErrorIs(t, s.UpsertCustomerLink(ctx, billing.CustomerLink{CustomerID: customer}), billing.ErrMissingUserID)
	require.ErrorIs(t, s.UpsertCustomerLink(ctx, billing.CustomerLink{UserID: user}), billing.ErrMissingCustomerID)

	require.NoError(t, s.UpsertCustomerLink(ctx, billing.CustomerLink{UserID: user, CustomerID: customer, CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertCustomerLink(ctx, billing.CustomerLink{UserID: user, CustomerID: customer, CreatedAt: time.Now()}))

	link, err := s.GetCustomerLink(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, customer, link.CustomerID)

	found, err := s.FindUserByCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, user, found)

	// A customer id reassigned to another user resolves to the new owner.
	require.NoError(t, s.UpsertCustomerLink(ctx, billing.CustomerLink{UserID: other, CustomerID: customer, CreatedAt: time.Now()}))
	found, err = s.FindUserByCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, other, found)

	require.NoError(t, s.DeleteCustomerLink(ctx, other))
	_, err = s.FindUserByCustomer(ctx, customer)
	require.ErrorIs(t, err, billing.ErrCustomerLinkNotFound)
	require.NoError(t, s.DeleteCustomerLink(ctx, user))
	_, err = s.GetCustomerLink(ctx, user)
	require.ErrorIs(t, err, billing.ErrCustomerLinkNotFound)
}

// RunLedger exercises the claim, mark processed and release protocol.
func RunLedger(t *testing.T, newLedger func(t *testing.T) billing.Ledger) {
	t.Helper()
	ctx := context.Background()

	claim := func(t *testing.T, l billing.Ledger, evt, typ string, ttl time.Duration) string {
		t.Helper()
		token, err := l.Claim(ctx, evt, typ, ttl)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		return token
	}
	claimErr := func(l billing.Ledger, evt, typ string, ttl time.Duration) error {
		_, err := l.Claim(ctx, evt, typ, ttl)
		return err
	}

	t.Run("duplicate after processed", func(t *testing.T) {
		l := newLedger(t)
		evt := id(t, "evt")
		token := claim(t, l, evt, "checkout.session.completed", time.Minute)
		require.NoError(t, l.MarkProcessed(ctx, evt, token))
		require.ErrorIs(t, claimErr(l, evt, "checkout.session.completed", time.Minute), billing.ErrEventProcessed)
		require.ErrorIs(t, claimErr(l, evt, "checkout.session.completed", time.Nanosecond), billing.ErrEventProcessed)
	})

	t.Run("in flight then released", func(t *testing.T) {
		l := newLedger(t)
		evt := id(t, "evt")
		token := claim(t, l, evt, "customer.subscription.updated", time.Minute)
		require.ErrorIs(t, claimErr(l, evt, "customer.subscription.updated", time.Minute), billing.ErrEventInFlight)
		require.NoError(t, l.Release(ctx, evt, token))
		token = claim(t, l, evt, "customer.subscription.updated", time.Minute)
		require.NoError(t, l.MarkProcessed(ctx, evt, token))
	})

	t.Run("expired claim is taken over", func(t *testing.T) {
		l := newLedger(t)
		evt := id(t, "evt")
		claim(t, l, evt, "customer.subscription.updated", 20*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		claim(t, l, evt, "customer.subscription.updated", time.Minute)
		require.ErrorIs(t, claimErr(l, evt, "customer.subscription.updated", time.Minute), billing.ErrEventInFlight)
	})

	t.Run("previous holder cannot touch a taken over claim", func(t *testing.T) {
		l := newLedger(t)
		evt := id(t, "evt")
		stale := claim(t, l, evt, "customer.subscription.updated", 20*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		current := claim(t, l, evt, "customer.subscription.updated", time.Minute)
		require.NotEqual(t, stale, current)

		require.NoError(t, l.Release(ctx, evt, stale))
		require.ErrorIs(t, claimErr(l, evt, "customer.subscription.updated", time.Minute), billing.ErrEventInFlight)
		require.ErrorIs(t, l.MarkProcessed(ctx, evt, stale), billing.ErrEventNotClaimed)
		require.ErrorIs(t, claimErr(l, evt, "customer.subscription.updated", time.Minute), billing.ErrEventInFlight)

		require.NoError(t, l.MarkProcessed(ctx, evt, current))
		require.ErrorIs(t, claimErr(l, evt, "customer.subscription.updated", time.Minute), billing.ErrEventProcessed)
	})

	t.Run("release keeps processed records", func(t *testing.T) {
		l := newLedger(t)
		evt := id(t, "evt")
		token := claim(t, l, evt, "invoice.paid", time.Minute)
		require.NoError(t, l.MarkProcessed(ctx, evt, token))
		require.NoError(t, l.Release(ctx, evt, token))
		require.ErrorIs(t, claimErr(l, evt, "invoice.paid", time.Minute), billing.ErrEventProcessed)
	})

	t.Run("empty id", func(t *testing.T) {
		l := newLedger(t)
		require.ErrorIs(t, claimErr(l, "", "invoice.paid", time.Minute), billing.ErrMissingEventID)
	})
}
