package account_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/svc/account"
)

func TestNewPassword_Validate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 73)
	tests := []struct {
		name string
		np   account.NewPassword
		want error
	}{
		{name: "ok", np: account.NewPassword{Password: "twelve chars", Confirm: "twelve chars"}},
		{name: "max length", np: account.NewPassword{Password: long[:72], Confirm: long[:72]}},
		{name: "mismatch wins over length", np: account.NewPassword{Password: "short", Confirm: "other"}, want: account.ErrPasswordMismatch},
		{name: "too short", np: account.NewPassword{Password: "short", Confirm: "short"}, want: account.ErrPasswordLength},
		{name: "too long", np: account.NewPassword{Password: long, Confirm: long}, want: account.ErrPasswordLength},
		{name: "empty", np: account.NewPassword{}, want: account.ErrPasswordLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.np.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignUpForm_Validate(t *testing.T) {
	t.Parallel()

	np := account.NewPassword{Password: "twelve chars", Confirm: "twelve chars"}
	assert.NoError(t, account.SignUpForm{Email: "user@example.com", NewPassword: np}.Validate())
	assert.ErrorIs(t, account.SignUpForm{Email: "nope", NewPassword: np}.Validate(), account.ErrInvalidEmail)
	assert.ErrorIs(t, account.SignUpForm{Email: "nope", NewPassword: account.NewPassword{Password: "a", Confirm: "b"}}.Validate(), account.ErrPasswordMismatch)
}

func TestService_SignUp(t *testing.T) {
	t.Parallel()
	form := account.SignUpForm{Email: "user@example.com", NewPassword: account.NewPassword{Password: "twelve chars", Confirm: "twelve chars"}}

	tests := []struct {
		name    string
		authErr error
		want    error
	}{
		{name: "created"},
		{name: "email taken", authErr: identity.ErrEmailTaken, want: account.ErrEmailTaken},
		{name: "weak password", authErr: identity.ErrWeakPassword, want: account.ErrWeakPassword},
		{name: "rate limited", authErr: identity.ErrRateLimited, want: account.ErrTooManyRequests},
		{name: "provider error", authErr: errors.New("boom"), want: account.ErrUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			var sess *identity.Session
			if tt.authErr == nil {
				sess = &identity.Session{AccessToken: "tok"}
			}
			f.auth.On("SignUp", mock.Anything, form.Email, form.Password).Return(sess, tt.authErr)

			got, err := f.svc.SignUp(context.Background(), form)
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, "tok", got.AccessToken)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("invalid form never reaches provider", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.SignUp(context.Background(), account.SignUpForm{Email: "user@example.com"})
		assert.ErrorIs(t, err, account.ErrPasswordLength)
		f.auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_SignIn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.auth.On("SignInWithPassword", mock.Anything, "user@example.com", "good").Return(&identity.Session{AccessToken: "tok"}, nil)
	f.auth.On("SignInWithPassword", mock.Anything, "user@example.com", "bad").Return(nil, identity.ErrInvalidCredentials)

	sess, err := f.svc.SignIn(context.Background(), "user@example.com", "good")
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.AccessToken)

	_, err = f.svc.SignIn(context.Background(), "user@example.com", "bad")
	assert.ErrorIs(t, err, account.ErrInvalidLogin)
	assert.Equal(t, "Invalid email or password.", err.Error())

	_, err = f.svc.SignIn(context.Background(), "", "")
	assert.ErrorIs(t, err, account.ErrInvalidLogin)
}

func TestService_RequestPasswordReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.auth.On("SendPasswordReset", mock.Anything, "known@example.com", "http://x/reset").Return(nil)
	f.auth.On("SendPasswordReset", mock.Anything, "broken@example.com", "http://x/reset").Return(errors.New("boom"))
	f.auth.On("SendPasswordReset", mock.Anything, "busy@example.com", "http://x/reset").Return(identity.ErrRateLimited)

	ctx := context.Background()
	assert.NoError(t, f.svc.RequestPasswordReset(ctx, "known@example.com", "http://x/reset"))
	assert.NoError(t, f.svc.RequestPasswordReset(ctx, "broken@example.com", "http://x/reset"))
	assert.ErrorIs(t, f.svc.RequestPasswordReset(ctx, "busy@example.com", "http://x/reset"), account.ErrTooManyRequests)
	assert.ErrorIs(t, f.svc.RequestPasswordReset(ctx, "", "http://x/reset"), account.ErrInvalidEmail)
}

func TestService_ResetPassword(t *testing.T) {
	t.Parallel()
	np := account.NewPassword{Password: "twelve chars", Confirm: "twelve chars"}

	t.Run("updates and signs out", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.auth.On("UpdatePassword", mock.Anything, "rec", np.Password).Return(nil)
		f.auth.On("SignOut", mock.Anything, "rec").Return(nil)

		require.NoError(t, f.svc.ResetPassword(context.Background(), "rec", np))
		f.auth.AssertExpectations(t)
	})

	t.Run("expired link", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.auth.On("UpdatePassword", mock.Anything, "old", np.Password).Return(identity.ErrUnauthenticated)

		assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "old", np), account.ErrResetLinkInvalid)
		f.auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "", np), account.ErrResetLinkInvalid)
	})

	t.Run("mismatch checked first", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.svc.ResetPassword(context.Background(), "", account.NewPassword{Password: "twelve chars", Confirm: "twelve charz"})
		assert.ErrorIs(t, err, account.ErrPasswordMismatch)
	})
}

func TestService_Overview(t *testing.T) {
	t.Parallel()

	t.Run("no billing records", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ov, err := f.svc.Overview(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, testUser.Email, ov.Email)
		assert.Equal(t, billing.DisplayNone, ov.Subscription.State)
		assert.True(t, ov.Deletion.Eligible)
		assert.Empty(t, ov.Deletion.Message)
	})

	t.Run("pending activation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "", true)
		ov, err := f.svc.Overview(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, billing.DisplayPending, ov.Subscription.State)
		assert.False(t, ov.Deletion.Eligible)
		assert.Equal(t, string(billing.ReasonPending), ov.Deletion.Reason)
	})

	t.Run("active", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, billing.StatusActive, true)
		end := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		_, err := f.store.UpsertEntitlement(context.Background(), billing.Entitlement{
			UserID: testUser.ID, Status: billing.StatusActive, CurrentPeriodEnd: &end, UpdatedAt: time.Now(), Revision: time.Now().Add(time.Minute),
		})
		require.NoError(t, err)

		ov, err := f.svc.Overview(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, billing.DisplayActive, ov.Subscription.State)
		require.NotNil(t, ov.Subscription.CurrentPeriodEnd)
		assert.True(t, end.Equal(*ov.Subscription.CurrentPeriodEnd))
		assert.Equal(t, billing.ReasonActive.Message(), ov.Deletion.Message)
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Overview(context.Background(), nil)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})
}
