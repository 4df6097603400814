// Package identity defines the auth provider collaborator and its HTTP glue.
//
// Authenticator covers the user-facing operations (current user, password
// sign-in, sign-out, sign-up, password recovery); AccountRemover is the
// administrative delete that requires elevated credentials. Adapters live in
// subpackages: supabase talks to Supabase GoTrue, local is an in-memory
// provider for development and tests.
//
// Middleware resolves an access token from the request and stores the user in
// the context:
//
//	r.Use(identity.Middleware(auth, log, sessionExtractor, identity.BearerTokenExtractor))
//	r.With(identity.RequireUser).Get("/app/account", overview)
//
//	user, ok := identity.UserFromContext(r.Context())
package identity
