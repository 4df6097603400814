package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/logger"
)

// Service implements the account pages: sign up, sign in, password reset,
// overview and deletion.
type Service struct {
	auth         identity.Authenticator
	remover      identity.AccountRemover
	entitlements billing.EntitlementStore
	links        billing.CustomerLinkStore
	mailer       email.EmailSender
	supportEmail string
	log          *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMailer enables the account-deleted notice.
func WithMailer(sender email.EmailSender, supportEmail string) Option {
	return func(s *Service) {
		s.mailer = sender
		s.supportEmail = supportEmail
	}
}

// New wires the service. remover must hold administrative credentials.
func New(
	auth identity.Authenticator,
	remover identity.AccountRemover,
	entitlements billing.EntitlementStore,
	links billing.CustomerLinkStore,
	opts ...Option,
) *Service {
	s := &Service{
		auth:         auth,
		remover:      remover,
		entitlements: entitlements,
		links:        links,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp validates the form and registers the account.
func (s *Service) SignUp(ctx context.Context, form SignUpForm) (*identity.Session, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.auth.SignUp(ctx, form.Email, form.Password)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, identity.ErrEmailTaken):
		return nil, ErrEmailTaken
	case errors.Is(err, identity.ErrWeakPassword):
		return nil, ErrWeakPassword
	case errors.Is(err, identity.ErrRateLimited):
		return nil, ErrTooManyRequests
	default:
		s.log.ErrorContext(ctx, "sign up failed", logger.Component("account"), logger.Error(err))
		return nil, ErrUnexpected
	}
}

// SignIn exchanges credentials for a session.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (*identity.Session, error) {
	if emailAddr == "" || password == "" {
		return nil, ErrInvalidLogin
	}
	sess, err := s.auth.SignInWithPassword(ctx, emailAddr, password)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, identity.ErrInvalidCredentials):
		return nil, ErrInvalidLogin
	case errors.Is(err, identity.ErrRateLimited):
		return nil, ErrTooManyRequests
	default:
		s.log.ErrorContext(ctx, "sign in failed", logger.Component("account"), logger.Error(err))
		return nil, ErrUnexpected
	}
}

// SignOut revokes the session. Provider failures are logged only; the
// caller always drops its session cookie.
func (s *Service) SignOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		s.log.WarnContext(ctx, "sign out failed", logger.Component("account"), logger.Error(err))
	}
}

// RequestPasswordReset sends a recovery link when the address is registered.
// The result does not reveal whether it is.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr, redirectURL string) error {
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	err := s.auth.SendPasswordReset(ctx, emailAddr, redirectURL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrRateLimited):
		return ErrTooManyRequests
	default:
		s.log.ErrorContext(ctx, "password reset request failed", logger.Component("account"), logger.Error(err))
		return nil
	}
}

// ResetPassword sets a new password using a recovery or session token and
// then ends that session.
func (s *Service) ResetPassword(ctx context.Context, token string, np NewPassword) error {
	if err := np.Validate(); err != nil {
		return err
	}
	if token == "" {
		return ErrResetLinkInvalid
	}
	err := s.auth.UpdatePassword(ctx, token, np.Password)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrUnauthenticated):
		return ErrResetLinkInvalid
	case errors.Is(err, identity.ErrWeakPassword):
		return ErrWeakPassword
	case errors.Is(err, identity.ErrRateLimited):
		return ErrTooManyRequests
	default:
		s.log.ErrorContext(ctx, "password update failed", logger.Component("account"), logger.Error(err))
		return ErrUnexpected
	}
	s.SignOut(ctx, token)
	return nil
}

// records loads the user's billing rows; absent rows are nil.
func (s *Service) records(ctx context.Context, userID string) (*billing.Entitlement, *billing.CustomerLink, error) {
	ent, err := s.entitlements.GetEntitlement(ctx, userID)
	if errors.Is(err, billing.ErrEntitlementNotFound) {
		ent, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	link, err := s.links.GetCustomerLink(ctx, userID)
	if errors.Is(err, billing.ErrCustomerLinkNotFound) {
		link, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return ent, link, nil
}
