package identity

import (
	"context"
	"time"
)

// User is the authenticated account as seen by this application.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Session is an authenticated session issued by the auth provider.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        User
}

// Authenticator is the auth provider collaborator.
type Authenticator interface {
	// CurrentUser resolves an access token. It returns ErrUnauthenticated for
	// missing, expired or revoked tokens.
	CurrentUser(ctx context.Context, accessToken string) (*User, error)

	// SignInWithPassword returns ErrInvalidCredentials on any credential mismatch.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignOut revokes the session behind accessToken. Unknown tokens are not an error.
	SignOut(ctx context.Context, accessToken string) error

	// SignUp creates an account. The returned session has an empty AccessToken
	// when the provider requires email confirmation first. ErrEmailTaken is
	// returned for registered addresses.
	SignUp(ctx context.Context, email, password string) (*Session, error)

	// SendPasswordReset emails a recovery link that lands on redirectURL.
	// Unknown addresses are not reported.
	SendPasswordReset(ctx context.Context, email, redirectURL string) error

	// UpdatePassword sets a new password for the user behind accessToken.
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// AccountRemover deletes users with elevated (administrative) credentials.
type AccountRemover interface {
	// DeleteUser returns ErrUserNotFound when the user does not exist.
	DeleteUser(ctx context.Context, userID string) error
}
