package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/accountkit/handler"
	"github.com/dmitrymomot/accountkit/modules/account"
	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/billing/memstore"
	"github.com/dmitrymomot/accountkit/pkg/cookie"
	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/identity/local"
	"github.com/dmitrymomot/accountkit/pkg/ratelimiter"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

const (
	secret   = "0123456789abcdef0123456789abcdef"
	password = "correct-horse-battery"
)

type outbox struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
}

func (o *outbox) SendEmail(_ context.Context, params email.SendEmailParams) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, params)
	return nil
}

func (o *outbox) byTag(tag string) []email.SendEmailParams {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []email.SendEmailParams
	for _, m := range o.sent {
		if m.Tag == tag {
			out = append(out, m)
		}
	}
	return out
}

type deletions struct {
	mu      sync.Mutex
	results []string
}

func (d *deletions) ObserveDeletion(result string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, result)
}

type fixture struct {
	router   chi.Router
	auth     *local.Provider
	sessions *account.Sessions
	store    *memstore.Store
	mail     *outbox
	metrics  *deletions
}

func newFixture(t *testing.T, limiter ratelimiter.RateLimiter) *fixture {
	t.Helper()
	mail := &outbox{}
	auth, err := local.New(local.Config{Secret: secret, BcryptCost: bcrypt.MinCost}, mail)
	require.NoError(t, err)
	store := memstore.New()
	cookies, err := cookie.New([]string{secret})
	require.NoError(t, err)
	sessions := account.NewSessions(cookies, "")
	metrics := &deletions{}

	svc := accountsvc.New(auth, auth, store, store, accountsvc.WithMailer(mail, "support@example.com"))
	r := chi.NewRouter()
	r.Use(identity.Middleware(auth, nil, sessions.TokenExtractor()))
	r.Mount("/", account.Router(account.RouterOptions{
		Service:  svc,
		Sessions: sessions,
		BaseURL:  "https://app.example.com/",
		Limiter:  limiter,
		Metrics:  metrics,
	}))
	return &fixture{router: r, auth: auth, sessions: sessions, store: store, mail: mail, metrics: metrics}
}

func (f *fixture) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) signUp(t *testing.T, addr string) *http.Cookie {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/signup", url.Values{
		"email":            {addr},
		"password":         {password},
		"confirm_password": {password},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == account.DefaultSessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", account.DefaultSessionCookie)
	return nil
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func overview(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	return data
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	session := f.signUp(t, "Ann@Example.com")
	assert.True(t, session.HttpOnly)

	rec := f.do(t, http.MethodGet, "/app/account", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	data := overview(t, rec)
	assert.Equal(t, "ann@example.com", data["email"])
	assert.Equal(t, map[string]any{"eligible": true}, data["deletion"])

	rec = f.do(t, http.MethodPost, "/auth/logout", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Negative(t, sessionCookie(t, rec).MaxAge)

	rec = f.do(t, http.MethodGet, "/app/account", nil, session)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", url.Values{"email": {"ann@example.com"}, "password": {password}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/app/account", nil, sessionCookie(t, rec)).Code)
}

func TestSignUp_Rejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.signUp(t, "taken@example.com")

	tests := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{
			name:   "password mismatch",
			form:   url.Values{"email": {"a@example.com"}, "password": {password}, "confirm_password": {"something-else-entirely"}},
			status: http.StatusUnprocessableEntity,
			code:   accountsvc.ErrPasswordMismatch.Code,
		},
		{
			name:   "short password",
			form:   url.Values{"email": {"a@example.com"}, "password": {"short"}, "confirm_password": {"short"}},
			status: http.StatusUnprocessableEntity,
			code:   accountsvc.ErrPasswordLength.Code,
		},
		{
			name:   "email taken",
			form:   url.Values{"email": {"taken@example.com"}, "password": {password}, "confirm_password": {password}},
			status: http.StatusConflict,
			code:   accountsvc.ErrEmailTaken.Code,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(t, http.MethodPost, "/auth/signup", tt.form)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	t.Parallel()
	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)
	f := newFixture(t, limiter)

	bad := url.Values{"email": {"nobody@example.com"}, "password": {"wrong-password"}}
	for range 2 {
		rec := f.do(t, http.MethodPost, "/auth/login", bad)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, accountsvc.ErrInvalidLogin.Code, errorCode(t, rec))
	}

	rec := f.do(t, http.MethodPost, "/auth/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, accountsvc.ErrTooManyRequests.Code, errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other routes use their own bucket.
	rec = f.do(t, http.MethodPost, "/auth/forgot-password", url.Values{"email": {"nobody@example.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.signUp(t, "reset@example.com")

	for _, addr := range []string{"reset@example.com", "unknown@example.com"} {
		rec := f.do(t, http.MethodPost, "/auth/forgot-password", url.Values{"email": {addr}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"message": accountsvc.PasswordResetSentMessage}, overview(t, rec))
	}
	sent := f.mail.byTag(email.TagPasswordReset)
	require.Len(t, sent, 1)
	token := resetToken(t, sent[0].BodyHTML)

	newPassword := "a-much-better-passphrase"
	form := url.Values{"token": {token}, "password": {newPassword}, "confirm_password": {newPassword}}
	rec := f.do(t, http.MethodPost, "/auth/reset-password", form)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/login?message=Password+updated.+Please+log+in.", rec.Header().Get("Location"))

	t.Run("token is single use", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/reset-password", form)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, accountsvc.ErrResetLinkInvalid.Code, errorCode(t, rec))
	})

	t.Run("old password no longer works", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/login", url.Values{"email": {"reset@example.com"}, "password": {password}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/login", url.Values{"email": {"reset@example.com"}, "password": {newPassword}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func resetToken(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, `href="`)
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len(`href="`):]
	link, err := url.Parse(strings.ReplaceAll(rest[:strings.Index(rest, `"`)], "&amp;", "&"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/reset-password", link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		rec := f.do(t, http.MethodPost, "/app/account/delete", url.Values{"confirmed": {"on"}, "password": {password}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("policy failures keep the account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		session := f.signUp(t, "keep@example.com")

		rec := f.do(t, http.MethodPost, "/app/account/delete", url.Values{"password": {password}}, session)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, accountsvc.ErrConfirmationRequired.Code, errorCode(t, rec))

		rec = f.do(t, http.MethodPost, "/app/account/delete", url.Values{"confirmed": {"on"}, "password": {"not-my-password"}}, session)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, accountsvc.ErrInvalidPassword.Code, errorCode(t, rec))

		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/app/account", nil, session).Code)
		assert.Equal(t, []string{"rejected", "rejected"}, f.metrics.results)
	})

	t.Run("active subscription blocks", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		session := f.signUp(t, "paying@example.com")
		userID := currentUserID(t, f, session)

		now := time.Now()
		require.NoError(t, f.store.UpsertCustomerLink(context.Background(), billing.CustomerLink{UserID: userID, CustomerID: "cus_1", CreatedAt: now}))
		_, err := f.store.UpsertEntitlement(context.Background(), billing.Entitlement{
			UserID: userID, SubscriptionID: "sub_1", Status: billing.StatusActive, UpdatedAt: now, Revision: now,
		})
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/app/account/delete", url.Values{"confirmed": {"on"}, "password": {password}}, session)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "deletion_blocked_active", errorCode(t, rec))
		assert.Equal(t, []string{"blocked"}, f.metrics.results)
	})

	t.Run("deletes and signs out", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		session := f.signUp(t, "leaving@example.com")
		userID := currentUserID(t, f, session)

		now := time.Now()
		require.NoError(t, f.store.UpsertCustomerLink(context.Background(), billing.CustomerLink{UserID: userID, CustomerID: "cus_2", CreatedAt: now}))
		_, err := f.store.UpsertEntitlement(context.Background(), billing.Entitlement{
			UserID: userID, SubscriptionID: "sub_2", Status: billing.StatusCanceled, UpdatedAt: now, Revision: now,
		})
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/app/account/delete", url.Values{"confirmed": {"on"}, "password": {password}}, session)
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
		assert.Equal(t, "/?message=account-deleted", rec.Header().Get("Location"))
		assert.Negative(t, sessionCookie(t, rec).MaxAge)
		assert.Equal(t, []string{"deleted"}, f.metrics.results)

		_, err = f.store.GetEntitlement(context.Background(), userID)
		assert.ErrorIs(t, err, billing.ErrEntitlementNotFound)
		_, err = f.store.GetCustomerLink(context.Background(), userID)
		assert.ErrorIs(t, err, billing.ErrCustomerLinkNotFound)
		assert.Len(t, f.mail.byTag(email.TagAccountDeleted), 1)

		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/app/account", nil, session).Code)
		rec = f.do(t, http.MethodPost, "/auth/login", url.Values{"email": {"leaving@example.com"}, "password": {password}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func currentUserID(t *testing.T, f *fixture, session *http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	token, err := f.sessions.TokenExtractor()(req)
	require.NoError(t, err)
	user, err := f.auth.CurrentUser(context.Background(), token)
	require.NoError(t, err)
	return user.ID
}

func TestRouter_RequiresDependencies(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { account.Router(account.RouterOptions{}) })
}
