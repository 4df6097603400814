package account_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/identity"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) CurrentUser(ctx context.Context, token string) (*identity.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*identity.User)
	return u, args.Error(1)
}

func (m *mockAuth) SignInWithPassword(ctx context.Context, emailAddr, password string) (*identity.Session, error) {
	args := m.Called(ctx, emailAddr, password)
	s, _ := args.Get(0).(*identity.Session)
	return s, args.Error(1)
}

func (m *mockAuth) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuth) SignUp(ctx context.Context, emailAddr, password string) (*identity.Session, error) {
	args := m.Called(ctx, emailAddr, password)
	s, _ := args.Get(0).(*identity.Session)
	return s, args.Error(1)
}

func (m *mockAuth) SendPasswordReset(ctx context.Context, emailAddr, redirectURL string) error {
	return m.Called(ctx, emailAddr, redirectURL).Error(0)
}

func (m *mockAuth) UpdatePassword(ctx context.Context, token, password string) error {
	return m.Called(ctx, token, password).Error(0)
}

type mockRemover struct{ mock.Mock }

func (m *mockRemover) DeleteUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type outbox struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	err  error
}

func (o *outbox) SendEmail(_ context.Context, p email.SendEmailParams) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, p)
	return o.err
}
