// Package memstore is an in-process implementation of the billing stores and
// ledger. It backs tests and single-instance development setups.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

// Store keeps entitlements, customer links and ledger records in maps.
type Store struct {
	mu           sync.RWMutex
	entitlements map[string]billing.Entitlement
	links        map[string]billing.CustomerLink
	customers    map[string]string // customer id -> user id
	events       map[string]billing.ProcessedEvent
	now          func() time.Time
}

var (
	_ billing.EntitlementStore  = (*Store)(nil)
	_ billing.CustomerLinkStore = (*Store)(nil)
	_ billing.Ledger            = (*Store)(nil)
)

// New creates an empty Store.
func New() *Store {
	return &Store{
		entitlements: make(map[string]billing.Entitlement),
		links:        make(map[string]billing.CustomerLink),
		customers:    make(map[string]string),
		events:       make(map[string]billing.ProcessedEvent),
		now:          time.Now,
	}
}

// WithClock overrides the clock used for ledger timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetEntitlement(_ context.Context, userID string) (*billing.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entitlements[userID]
	if !ok {
		return nil, billing.ErrEntitlementNotFound
	}
	return &e, nil
}

func (s *Store) UpsertEntitlement(_ context.Context, e billing.Entitlement) (bool, error) {
	if e.UserID == "" {
		return false, billing.ErrMissingUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entitlements[e.UserID]; ok {
		if cur.Revision.After(e.Revision) {
			return false, nil
		}
		if cur.UpdatedAt.After(e.UpdatedAt) {
			e.UpdatedAt = cur.UpdatedAt
		}
	}
	s.entitlements[e.UserID] = e
	return true, nil
}

func (s *Store) UpdateEntitlementStatus(_ context.Context, userID, status string, revision, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entitlements[userID]
	if !ok || cur.Revision.After(revision) {
		return false, nil
	}
	cur.Status = status
	cur.Revision = revision
	if updatedAt.After(cur.UpdatedAt) {
		cur.UpdatedAt = updatedAt
	}
	s.entitlements[userID] = cur
	return true, nil
}

func (s *Store) DeleteEntitlement(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entitlements, userID)
	return nil
}

func (s *Store) GetCustomerLink(_ context.Context, userID string) (*billing.CustomerLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[userID]
	if !ok {
		return nil, billing.ErrCustomerLinkNotFound
	}
	return &l, nil
}

func (s *Store) FindUserByCustomer(_ context.Context, customerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.customers[customerID]
	if !ok {
		return "", billing.ErrCustomerLinkNotFound
	}
	return userID, nil
}

func (s *Store) UpsertCustomerLink(_ context.Context, link billing.CustomerLink) error {
	if link.UserID == "" {
		return billing.ErrMissingUserID
	}
	if link.CustomerID == "" {
		return billing.ErrMissingCustomerID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.customers[link.CustomerID]; ok && prev != link.UserID {
		delete(s.links, prev)
	}
	if cur, ok := s.links[link.UserID]; ok {
		delete(s.customers, cur.CustomerID)
		link.CreatedAt = cur.CreatedAt
	}
	s.links[link.UserID] = link
	s.customers[link.CustomerID] = link.UserID
	return nil
}

func (s *Store) DeleteCustomerLink(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.links[userID]; ok {
		delete(s.customers, cur.CustomerID)
		delete(s.links, userID)
	}
	return nil
}

func (s *Store) Claim(_ context.Context, eventID, eventType string, ttl time.Duration) (string, error) {
	if eventID == "" {
		return "", billing.ErrMissingEventID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if cur, ok := s.events[eventID]; ok {
		if cur.State == billing.EventStateProcessed {
			return "", billing.ErrEventProcessed
		}
		if now.Before(cur.ExpiresAt) {
			return "", billing.ErrEventInFlight
		}
	}
	token := uuid.NewString()
	s.events[eventID] = billing.ProcessedEvent{
		EventID:    eventID,
		EventType:  eventType,
		State:      billing.EventStateProcessing,
		ClaimToken: token,
		ClaimedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	return token, nil
}

func (s *Store) MarkProcessed(_ context.Context, eventID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[eventID]
	if !ok || cur.State != billing.EventStateProcessing || cur.ClaimToken != token {
		return billing.ErrEventNotClaimed
	}
	now := s.now()
	cur.State = billing.EventStateProcessed
	cur.ProcessedAt = &now
	s.events[eventID] = cur
	return nil
}

func (s *Store) Release(_ context.Context, eventID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.events[eventID]; ok && cur.State == billing.EventStateProcessing && cur.ClaimToken == token {
		delete(s.events, eventID)
	}
	return nil
}

// Event returns the ledger record for eventID.
func (s *Store) Event(eventID string) (billing.ProcessedEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	return e, ok
}
