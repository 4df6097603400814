package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/statemachine"
)

// Deletion workflow steps, in order.
const (
	StepAwaitConfirmation statemachine.StringState = "await_confirmation"
	StepVerifyPassword    statemachine.StringState = "verify_password"
	StepCheckEligibility  statemachine.StringState = "check_eligibility"
	StepDelete            statemachine.StringState = "delete"
	StepSignedOut         statemachine.StringState = "signed_out"
)

const (
	evConfirm statemachine.StringEvent = "confirm"
	evVerify  statemachine.StringEvent = "verify"
	evApprove statemachine.StringEvent = "approve"
	evDelete  statemachine.StringEvent = "delete"
)

var deletionEvents = []statemachine.Event{evConfirm, evVerify, evApprove, evDelete}

// DeleteRequest is the submitted delete-account form.
type DeleteRequest struct {
	Confirmed bool
	Password  string
}

type deletion struct {
	user  *identity.User
	token string
	req   DeleteRequest
	log   *slog.Logger
}

func (s *Service) deletionMachine() (*statemachine.Machine, error) {
	return statemachine.New(StepAwaitConfirmation, statemachine.WithTransitions(
		statemachine.Transition{From: StepAwaitConfirmation, To: StepVerifyPassword, Event: evConfirm, Actions: []statemachine.Action{s.requireConfirmation}},
		statemachine.Transition{From: StepVerifyPassword, To: StepCheckEligibility, Event: evVerify, Actions: []statemachine.Action{s.verifyPassword}},
		statemachine.Transition{From: StepCheckEligibility, To: StepDelete, Event: evApprove, Actions: []statemachine.Action{s.checkEligibility}},
		statemachine.Transition{From: StepDelete, To: StepSignedOut, Event: evDelete, Actions: []statemachine.Action{s.deleteAccount, s.purgeBillingRows, s.endSession, s.notifyDeleted}},
	))
}

// DeleteAccount runs the deletion workflow for the signed-in user. It returns
// a *PolicyError or *BlockedError describing why nothing was deleted, or nil
// once the account is gone and the session has been ended.
func (s *Service) DeleteAccount(ctx context.Context, user *identity.User, accessToken string, req DeleteRequest) error {
	if user == nil {
		return identity.ErrUnauthenticated
	}
	m, err := s.deletionMachine()
	if err != nil {
		return err
	}
	run := &deletion{
		user:  user,
		token: accessToken,
		req:   req,
		log:   s.log.With(logger.UserID(user.ID), logger.Component("account.deletion")),
	}
	for _, ev := range deletionEvents {
		if err := m.Fire(ctx, ev, run); err != nil {
			run.log.InfoContext(ctx, "account deletion stopped",
				slog.String("step", m.Current().Name()),
				logger.Error(err),
			)
			return err
		}
	}
	run.log.InfoContext(ctx, "account deleted")
	return nil
}

func runOf(data any) *deletion { return data.(*deletion) }

func (s *Service) requireConfirmation(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	if !runOf(data).req.Confirmed {
		return ErrConfirmationRequired
	}
	return nil
}

func (s *Service) verifyPassword(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := runOf(data)
	if run.req.Password == "" {
		return ErrInvalidPassword
	}
	_, err := s.auth.SignInWithPassword(ctx, run.user.Email, run.req.Password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrInvalidCredentials):
		return ErrInvalidPassword
	case errors.Is(err, identity.ErrRateLimited):
		return ErrTooManyRequests
	default:
		run.log.ErrorContext(ctx, "password re-verification failed", logger.Error(err))
		return ErrUnexpected
	}
}

func (s *Service) checkEligibility(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := runOf(data)
	ent, link, err := s.records(ctx, run.user.ID)
	if err != nil {
		run.log.ErrorContext(ctx, "failed to load billing records", logger.Error(err))
		return ErrUnexpected
	}
	if d := billing.EvaluateRecords(ent, link); !d.Eligible {
		return blocked(d)
	}
	return nil
}

func (s *Service) deleteAccount(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := runOf(data)
	if err := s.remover.DeleteUser(ctx, run.user.ID); err != nil {
		run.log.ErrorContext(ctx, "auth provider failed to delete user", logger.Error(err))
		return ErrUnexpected
	}
	return nil
}

// The steps below run after the account is gone and never fail the workflow.

func (s *Service) purgeBillingRows(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := runOf(data)
	if err := s.entitlements.DeleteEntitlement(ctx, run.user.ID); err != nil {
		run.log.ErrorContext(ctx, "failed to delete entitlement", logger.Error(err))
	}
	if err := s.links.DeleteCustomerLink(ctx, run.user.ID); err != nil {
		run.log.ErrorContext(ctx, "failed to delete customer link", logger.Error(err))
	}
	return nil
}

func (s *Service) endSession(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	s.SignOut(ctx, runOf(data).token)
	return nil
}

func (s *Service) notifyDeleted(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := runOf(data)
	if s.mailer == nil || run.user.Email == "" {
		return nil
	}
	msg, err := email.AccountDeleted(run.user.Email, s.supportEmail)
	if err == nil {
		err = s.mailer.SendEmail(ctx, msg)
	}
	if err != nil {
		run.log.WarnContext(ctx, "failed to send account deleted email", logger.Error(err))
	}
	return nil
}
