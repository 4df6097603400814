package account

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/identity"
)

// Overview is the account page model.
type Overview struct {
	Email        string          `json:"email"`
	Subscription billing.Summary `json:"subscription"`
	Deletion     DeletionStatus  `json:"deletion"`
}

// DeletionStatus tells the page whether the delete form can succeed.
type DeletionStatus struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (s *Service) Overview(ctx context.Context, user *identity.User) (*Overview, error) {
	if user == nil {
		return nil, identity.ErrUnauthenticated
	}
	ent, link, err := s.records(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load billing records: %w", err)
	}
	summary := billing.Summarize(ent, link)
	return &Overview{
		Email:        user.Email,
		Subscription: summary,
		Deletion: DeletionStatus{
			Eligible: summary.Deletion.Eligible,
			Reason:   string(summary.Deletion.Reason),
			Message:  summary.Deletion.Message(),
		},
	}, nil
}
