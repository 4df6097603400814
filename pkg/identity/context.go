package identity

import "context"

type contextKey struct{ name string }

func (c contextKey) String() string { return c.name }

var (
	userContextKey  = &contextKey{name: "identity_user"}
	tokenContextKey = &contextKey{name: "identity_token"}
)

// WithUser stores the authenticated user and its access token in ctx.
func WithUser(ctx context.Context, user *User, accessToken string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, tokenContextKey, accessToken)
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok && u != nil
}

// TokenFromContext returns the access token the user was resolved from.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenContextKey).(string)
	return t, ok && t != ""
}
