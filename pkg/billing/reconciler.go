package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/accountkit/pkg/logger"
)

// DefaultClaimTTL is how long a processing claim blocks other deliveries of
// the same event before it is considered abandoned.
const DefaultClaimTTL = 10 * time.Minute

// Outcome reports what Apply did with an event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
)

// Reconciler applies provider events to the entitlement and customer link stores.
type Reconciler struct {
	entitlements EntitlementStore
	links        CustomerLinkStore
	ledger       Ledger
	fetcher      SubscriptionFetcher
	log          *slog.Logger
	now          func() time.Time
	claimTTL     time.Duration
}

// NewReconciler creates a Reconciler.
// Panics if any dependency is nil.
func NewReconciler(entitlements EntitlementStore, links CustomerLinkStore, ledger Ledger, fetcher SubscriptionFetcher, opts ...ReconcilerOption) *Reconciler {
	if entitlements == nil {
		panic("billing: EntitlementStore is required")
	}
	if links == nil {
		panic("billing: CustomerLinkStore is required")
	}
	if ledger == nil {
		panic("billing: Ledger is required")
	}
	if fetcher == nil {
		panic("billing: SubscriptionFetcher is required")
	}

	r := &Reconciler{
		entitlements: entitlements,
		links:        links,
		ledger:       ledger,
		fetcher:      fetcher,
		log:          slog.Default(),
		now:          time.Now,
		claimTTL:     DefaultClaimTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply claims the event in the ledger, applies it and marks it processed.
//
// A redelivered event that was already processed yields OutcomeDuplicate and
// no store writes. ErrEventInFlight is returned while another delivery holds
// the claim. Any other error means the event was not applied and the claim was
// released, so the caller should ask the provider to redeliver.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	if ev.ID == "" {
		return "", ErrMissingEventID
	}

	log := r.log.With(
		logger.Component("billing.reconciler"),
		logger.EventID(ev.ID),
		logger.EventType(ev.Type),
	)

	token, err := r.ledger.Claim(ctx, ev.ID, ev.Type, r.claimTTL)
	if err != nil {
		if errors.Is(err, ErrEventProcessed) {
			log.DebugContext(ctx, "duplicate billing event")
			return OutcomeDuplicate, nil
		}
		return "", err
	}

	if err := r.dispatch(ctx, log, ev); err != nil {
		if relErr := r.ledger.Release(ctx, ev.ID, token); relErr != nil {
			log.ErrorContext(ctx, "failed to release billing event claim", logger.Error(relErr))
		}
		return "", errors.Join(ErrApplyEvent, err)
	}

	// The writes above are revision-guarded, so if marking fails, or the claim
	// was taken over meanwhile, the redelivery re-applies them harmlessly.
	if err := r.ledger.MarkProcessed(ctx, ev.ID, token); err != nil {
		return "", err
	}

	log.InfoContext(ctx, "billing event applied", slog.String("kind", ev.Kind()))
	return OutcomeProcessed, nil
}

func (r *Reconciler) dispatch(ctx context.Context, log *slog.Logger, ev Event) error {
	switch p := ev.Payload.(type) {
	case CheckoutCompleted:
		return r.applyCheckout(ctx, log, ev, p)
	case SubscriptionCreated:
		return r.applySubscription(ctx, log, ev, p.Subscription)
	case SubscriptionUpdated:
		return r.applySubscription(ctx, log, ev, p.Subscription)
	case SubscriptionDeleted:
		return r.applyDeletion(ctx, log, ev, p.Subscription)
	default:
		return nil
	}
}

func (r *Reconciler) applyCheckout(ctx context.Context, log *slog.Logger, ev Event, p CheckoutCompleted) error {
	if p.UserRef == "" {
		log.WarnContext(ctx, "checkout completed without user reference, skipping")
		return nil
	}
	log = log.With(logger.UserID(p.UserRef))
	if p.CustomerID == "" {
		log.WarnContext(ctx, "checkout completed without customer, skipping")
		return nil
	}

	if err := r.links.UpsertCustomerLink(ctx, CustomerLink{
		UserID:     p.UserRef,
		CustomerID: p.CustomerID,
		CreatedAt:  r.now(),
	}); err != nil {
		return err
	}

	if p.SubscriptionID == "" {
		log.InfoContext(ctx, "checkout completed without subscription, entitlement pending")
		return nil
	}

	sub, err := r.fetcher.RetrieveSubscription(ctx, p.SubscriptionID)
	if err != nil {
		return errors.Join(ErrSubscriptionFetch, err)
	}

	subID := sub.ID
	if subID == "" {
		subID = p.SubscriptionID
	}
	applied, err := r.entitlements.UpsertEntitlement(ctx, Entitlement{
		UserID:           p.UserRef,
		SubscriptionID:   subID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		UpdatedAt:        r.now(),
		// Provider clock, same as subscription events; ties apply.
		Revision: r.revision(ev),
	})
	if err != nil {
		return err
	}
	if !applied {
		log.InfoContext(ctx, "stored entitlement is newer than checkout snapshot", logger.SubscriptionID(subID))
	}
	return nil
}

func (r *Reconciler) applySubscription(ctx context.Context, log *slog.Logger, ev Event, sub Subscription) error {
	userID, ok, err := r.resolveUser(ctx, log, sub)
	if err != nil || !ok {
		return err
	}

	applied, err := r.entitlements.UpsertEntitlement(ctx, Entitlement{
		UserID:           userID,
		SubscriptionID:   sub.ID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		UpdatedAt:        r.now(),
		Revision:         r.revision(ev),
	})
	if err != nil {
		return err
	}
	if !applied {
		log.InfoContext(ctx, "stale subscription event skipped",
			logger.UserID(userID),
			logger.SubscriptionID(sub.ID),
		)
	}
	return nil
}

func (r *Reconciler) applyDeletion(ctx context.Context, log *slog.Logger, ev Event, sub Subscription) error {
	userID, ok, err := r.resolveUser(ctx, log, sub)
	if err != nil || !ok {
		return err
	}

	status := sub.Status
	if status == "" {
		status = StatusCanceled
	}
	applied, err := r.entitlements.UpdateEntitlementStatus(ctx, userID, status, r.revision(ev), r.now())
	if err != nil {
		return err
	}
	if !applied {
		log.InfoContext(ctx, "subscription deletion not applied, no current entitlement",
			logger.UserID(userID),
			logger.SubscriptionID(sub.ID),
		)
	}
	return nil
}

// resolveUser maps the event's customer to a user. ok is false when the event
// cannot be attributed yet; the provider's redelivery or a later event converges.
func (r *Reconciler) resolveUser(ctx context.Context, log *slog.Logger, sub Subscription) (string, bool, error) {
	if sub.CustomerID == "" {
		log.WarnContext(ctx, "subscription event without customer, skipping", logger.SubscriptionID(sub.ID))
		return "", false, nil
	}
	userID, err := r.links.FindUserByCustomer(ctx, sub.CustomerID)
	if errors.Is(err, ErrCustomerLinkNotFound) {
		log.WarnContext(ctx, "no user linked to billing customer, skipping",
			logger.CustomerID(sub.CustomerID),
			logger.SubscriptionID(sub.ID),
		)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (r *Reconciler) revision(ev Event) time.Time {
	if ev.OccurredAt.IsZero() {
		return r.now()
	}
	return ev.OccurredAt
}
