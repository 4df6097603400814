// Package mongostore implements the billing stores and ledger on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

const (
	entitlementsCollection = "entitlements"
	customersCollection    = "billing_customers"
	eventsCollection       = "processed_events"
)

type entitlementDoc struct {
	UserID           string     `bson:"_id"`
	SubscriptionID   string     `bson:"subscription_id,omitempty"`
	Status           string     `bson:"status"`
	CurrentPeriodEnd *time.Time `bson:"current_period_end,omitempty"`
	UpdatedAt        time.Time  `bson:"updated_at"`
	Revision         time.Time  `bson:"revision"`
}

type customerDoc struct {
	UserID     string    `bson:"_id"`
	CustomerID string    `bson:"customer_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

type eventDoc struct {
	EventID    string    `bson:"_id"`
	EventType  string    `bson:"event_type"`
	State      string    `bson:"state"`
	ClaimToken string    `bson:"claim_token"`
	ClaimedAt  time.Time `bson:"claimed_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// Store keeps billing records in three collections keyed by _id.
type Store struct {
	entitlements *mongo.Collection
	customers    *mongo.Collection
	events       *mongo.Collection
	now          func() time.Time
}

var (
	_ billing.EntitlementStore  = (*Store)(nil)
	_ billing.CustomerLinkStore = (*Store)(nil)
	_ billing.Ledger            = (*Store)(nil)
)

func New(db *mongo.Database) *Store {
	return &Store{
		entitlements: db.Collection(entitlementsCollection),
		customers:    db.Collection(customersCollection),
		events:       db.Collection(eventsCollection),
		now:          time.Now,
	}
}

// EnsureIndexes creates the unique customer index used by reverse lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.customers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "customer_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) GetEntitlement(ctx context.Context, userID string) (*billing.Entitlement, error) {
	var doc entitlementDoc
	err := s.entitlements.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, billing.ErrEntitlementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &billing.Entitlement{
		UserID:           doc.UserID,
		SubscriptionID:   doc.SubscriptionID,
		Status:           doc.Status,
		CurrentPeriodEnd: doc.CurrentPeriodEnd,
		UpdatedAt:        doc.UpdatedAt,
		Revision:         doc.Revision,
	}, nil
}

// UpsertEntitlement filters on the stored revision. When a newer row exists
// the filter misses, the upsert collides on _id and the write is reported as skipped.
func (s *Store) UpsertEntitlement(ctx context.Context, e billing.Entitlement) (bool, error) {
	if e.UserID == "" {
		return false, billing.ErrMissingUserID
	}
	res, err := s.entitlements.UpdateOne(ctx,
		bson.M{"_id": e.UserID, "revision": bson.M{"$lte": e.Revision}},
		bson.M{
			"$set": bson.M{
				"subscription_id":    e.SubscriptionID,
				"status":             e.Status,
				"current_period_end": e.CurrentPeriodEnd,
				"revision":           e.Revision,
			},
			"$max": bson.M{"updated_at": e.UpdatedAt},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.MatchedCount+res.UpsertedCount > 0, nil
}

func (s *Store) UpdateEntitlementStatus(ctx context.Context, userID, status string, revision, updatedAt time.Time) (bool, error) {
	res, err := s.entitlements.UpdateOne(ctx,
		bson.M{"_id": userID, "revision": bson.M{"$lte": revision}},
		bson.M{
			"$set": bson.M{"status": status, "revision": revision},
			"$max": bson.M{"updated_at": updatedAt},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) DeleteEntitlement(ctx context.Context, userID string) error {
	_, err := s.entitlements.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

func (s *Store) GetCustomerLink(ctx context.Context, userID string) (*billing.CustomerLink, error) {
	var doc customerDoc
	err := s.customers.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, billing.ErrCustomerLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &billing.CustomerLink{UserID: doc.UserID, CustomerID: doc.CustomerID, CreatedAt: doc.CreatedAt}, nil
}

func (s *Store) FindUserByCustomer(ctx context.Context, customerID string) (string, error) {
	var doc customerDoc
	err := s.customers.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", billing.ErrCustomerLinkNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.UserID, nil
}

func (s *Store) UpsertCustomerLink(ctx context.Context, link billing.CustomerLink) error {
	if link.UserID == "" {
		return billing.ErrMissingUserID
	}
	if link.CustomerID == "" {
		return billing.ErrMissingCustomerID
	}
	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	if _, err := s.customers.DeleteMany(ctx, bson.M{
		"customer_id": link.CustomerID,
		"_id":         bson.M{"$ne": link.UserID},
	}); err != nil {
		return err
	}
	_, err := s.customers.UpdateOne(ctx,
		bson.M{"_id": link.UserID},
		bson.M{
			"$set":         bson.M{"customer_id": link.CustomerID},
			"$setOnInsert": bson.M{"created_at": createdAt},
		},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (s *Store) DeleteCustomerLink(ctx context.Context, userID string) error {
	_, err := s.customers.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// Claim inserts a processing document; the _id duplicate key is the dedup signal.
func (s *Store) Claim(ctx context.Context, eventID, eventType string, ttl time.Duration) (string, error) {
	if eventID == "" {
		return "", billing.ErrMissingEventID
	}
	now := s.now()
	token := uuid.NewString()
	_, err := s.events.InsertOne(ctx, eventDoc{
		EventID:    eventID,
		EventType:  eventType,
		State:      string(billing.EventStateProcessing),
		ClaimToken: token,
		ClaimedAt:  now,
		ExpiresAt:  now.Add(ttl),
	})
	if err == nil {
		return token, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return "", err
	}

	res, err := s.events.UpdateOne(ctx,
		bson.M{
			"_id":        eventID,
			"state":      string(billing.EventStateProcessing),
			"expires_at": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{"event_type": eventType, "claim_token": token, "claimed_at": now, "expires_at": now.Add(ttl)}},
	)
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 1 {
		return token, nil
	}

	var doc eventDoc
	err = s.events.FindOne(ctx, bson.M{"_id": eventID}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return "", billing.ErrEventInFlight
	case err != nil:
		return "", err
	case billing.EventState(doc.State) == billing.EventStateProcessed:
		return "", billing.ErrEventProcessed
	default:
		return "", billing.ErrEventInFlight
	}
}

func (s *Store) MarkProcessed(ctx context.Context, eventID, token string) error {
	res, err := s.events.UpdateOne(ctx,
		claimFilter(eventID, token),
		bson.M{"$set": bson.M{"state": string(billing.EventStateProcessed), "processed_at": s.now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return billing.ErrEventNotClaimed
	}
	return nil
}

func (s *Store) Release(ctx context.Context, eventID, token string) error {
	_, err := s.events.DeleteOne(ctx, claimFilter(eventID, token))
	return err
}

func claimFilter(eventID, token string) bson.M {
	return bson.M{
		"_id":         eventID,
		"state":       string(billing.EventStateProcessing),
		"claim_token": token,
	}
}
