// Package pgstore implements the billing stores and ledger on PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/pg"
)

// Migrations holds the schema; pass it to pg.Migrate with MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store keeps entitlements, customer links and processed events in PostgreSQL.
type Store struct {
	db DB
}

var (
	_ billing.EntitlementStore  = (*Store)(nil)
	_ billing.CustomerLinkStore = (*Store)(nil)
	_ billing.Ledger            = (*Store)(nil)
)

func New(db DB) *Store {
	return &Store{db: db}
}

const getEntitlement = `
SELECT user_id, COALESCE(subscription_id, ''), status, current_period_end, updated_at, revision
FROM entitlements WHERE user_id = $1`

func (s *Store) GetEntitlement(ctx context.Context, userID string) (*billing.Entitlement, error) {
	var e billing.Entitlement
	err := s.db.QueryRow(ctx, getEntitlement, userID).Scan(
		&e.UserID, &e.SubscriptionID, &e.Status, &e.CurrentPeriodEnd, &e.UpdatedAt, &e.Revision,
	)
	if pg.IsNotFoundError(err) {
		return nil, billing.ErrEntitlementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// The WHERE clause on the conflict branch drops writes older than the stored revision.
const upsertEntitlement = `
INSERT INTO entitlements (user_id, subscription_id, status, current_period_end, revision, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
    subscription_id    = EXCLUDED.subscription_id,
    status             = EXCLUDED.status,
    current_period_end = EXCLUDED.current_period_end,
    revision           = EXCLUDED.revision,
    updated_at         = GREATEST(entitlements.updated_at, EXCLUDED.updated_at)
WHERE entitlements.revision <= EXCLUDED.revision`

func (s *Store) UpsertEntitlement(ctx context.Context, e billing.Entitlement) (bool, error) {
	if e.UserID == "" {
		return false, billing.ErrMissingUserID
	}
	tag, err := s.db.Exec(ctx, upsertEntitlement,
		e.UserID, e.SubscriptionID, e.Status, e.CurrentPeriodEnd, e.Revision, e.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const updateEntitlementStatus = `
UPDATE entitlements
SET status = $2, revision = $3, updated_at = GREATEST(updated_at, $4)
WHERE user_id = $1 AND revision <= $3`

func (s *Store) UpdateEntitlementStatus(ctx context.Context, userID, status string, revision, updatedAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, updateEntitlementStatus, userID, status, revision, updatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteEntitlement(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM entitlements WHERE user_id = $1`, userID)
	return err
}

func (s *Store) GetCustomerLink(ctx context.Context, userID string) (*billing.CustomerLink, error) {
	var l billing.CustomerLink
	err := s.db.QueryRow(ctx,
		`SELECT user_id, customer_id, created_at FROM billing_customers WHERE user_id = $1`, userID,
	).Scan(&l.UserID, &l.CustomerID, &l.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, billing.ErrCustomerLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) FindUserByCustomer(ctx context.Context, customerID string) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx,
		`SELECT user_id FROM billing_customers WHERE customer_id = $1`, customerID,
	).Scan(&userID)
	if pg.IsNotFoundError(err) {
		return "", billing.ErrCustomerLinkNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// UpsertCustomerLink moves customerID to link.UserID if another user held it,
// keeping the customer_id unique index satisfied.
func (s *Store) UpsertCustomerLink(ctx context.Context, link billing.CustomerLink) error {
	if link.UserID == "" {
		return billing.ErrMissingUserID
	}
	if link.CustomerID == "" {
		return billing.ErrMissingCustomerID
	}
	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM billing_customers WHERE customer_id = $1 AND user_id <> $2`,
			link.CustomerID, link.UserID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
INSERT INTO billing_customers (user_id, customer_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET customer_id = EXCLUDED.customer_id`,
			link.UserID, link.CustomerID, createdAt,
		)
		return err
	})
}

func (s *Store) DeleteCustomerLink(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM billing_customers WHERE user_id = $1`, userID)
	return err
}

// Claim inserts a processing record; the primary key conflict is the dedup signal.
func (s *Store) Claim(ctx context.Context, eventID, eventType string, ttl time.Duration) (string, error) {
	if eventID == "" {
		return "", billing.ErrMissingEventID
	}
	token := uuid.NewString()
	_, err := s.db.Exec(ctx,
		`INSERT INTO processed_events (event_id, event_type, state, claim_token, claimed_at, expires_at)
VALUES ($1, $2, 'processing', $4, now(), now() + make_interval(secs => $3))`,
		eventID, eventType, ttl.Seconds(), token,
	)
	if err == nil {
		return token, nil
	}
	if !pg.IsDuplicateKeyError(err) {
		return "", err
	}

	tag, err := s.db.Exec(ctx, `
UPDATE processed_events
SET claim_token = $4, claimed_at = now(), expires_at = now() + make_interval(secs => $3), event_type = $2
WHERE event_id = $1 AND state = 'processing' AND expires_at <= now()`,
		eventID, eventType, ttl.Seconds(), token,
	)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 1 {
		return token, nil
	}

	var state string
	err = s.db.QueryRow(ctx, `SELECT state FROM processed_events WHERE event_id = $1`, eventID).Scan(&state)
	switch {
	case pg.IsNotFoundError(err):
		// Released between our insert and this read; let the provider retry.
		return "", billing.ErrEventInFlight
	case err != nil:
		return "", err
	case billing.EventState(state) == billing.EventStateProcessed:
		return "", billing.ErrEventProcessed
	default:
		return "", billing.ErrEventInFlight
	}
}

func (s *Store) MarkProcessed(ctx context.Context, eventID, token string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE processed_events SET state = 'processed', processed_at = now()
WHERE event_id = $1 AND state = 'processing' AND claim_token = $2`,
		eventID, token,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrEventNotClaimed
	}
	return nil
}

func (s *Store) Release(ctx context.Context, eventID, token string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM processed_events WHERE event_id = $1 AND state = 'processing' AND claim_token = $2`,
		eventID, token,
	)
	return err
}
