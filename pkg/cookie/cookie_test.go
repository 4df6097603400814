package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/cookie"
)

var (
	secretA = strings.Repeat("a", 32)
	secretB = strings.Repeat("b", 40)
)

// roundTrip copies the Set-Cookie headers of rec into a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := cookie.New(nil)
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"", ""})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"short"})
	assert.ErrorIs(t, err, cookie.ErrSecretTooShort)

	m, err := cookie.New([]string{secretA})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{
		Secrets:  " " + secretA + " , " + secretB,
		Path:     "/app",
		Domain:   "example.com",
		MaxAge:   60,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetEncrypted(rec, "s", "v"))
	c := rec.Result().Cookies()[0]
	assert.Equal(t, "/app", c.Path)
	assert.Equal(t, "example.com", c.Domain)
	assert.Equal(t, 60, c.MaxAge)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	_, err = cookie.NewFromConfig(cookie.Config{})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)
}

func TestManager_Encrypted(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetEncrypted(rec, "session", "access-token"))
		c := rec.Result().Cookies()[0]
		assert.NotContains(t, c.Value, "access-token")
		assert.True(t, c.HttpOnly)

		got, err := m.GetEncrypted(roundTrip(rec), "session")
		require.NoError(t, err)
		assert.Equal(t, "access-token", got)
	})

	t.Run("fresh nonce per write", func(t *testing.T) {
		t.Parallel()
		r1, r2 := httptest.NewRecorder(), httptest.NewRecorder()
		require.NoError(t, m.SetEncrypted(r1, "session", "same"))
		require.NoError(t, m.SetEncrypted(r2, "session", "same"))
		assert.NotEqual(t, r1.Result().Cookies()[0].Value, r2.Result().Cookies()[0].Value)
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()
		_, err := m.GetEncrypted(httptest.NewRequest(http.MethodGet, "/", nil), "session")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("tampered value", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"})
		_, err := m.GetEncrypted(req, "session")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})

	t.Run("not base64", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "!!!"})
		_, err := m.GetEncrypted(req, "session")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})

	t.Run("value bound to cookie name", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetEncrypted(rec, "session", "token"))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "other", Value: rec.Result().Cookies()[0].Value})
		_, err := m.GetEncrypted(req, "other")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})
}

func TestManager_SecretRotation(t *testing.T) {
	t.Parallel()

	old, err := cookie.New([]string{secretA})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{secretB, secretA})
	require.NoError(t, err)
	fresh, err := cookie.New([]string{secretB})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, old.SetEncrypted(rec, "session", "v1"))

	got, err := rotated.GetEncrypted(roundTrip(rec), "session")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	_, err = fresh.GetEncrypted(roundTrip(rec), "session")
	assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secretA}, cookie.WithPath("/app"), cookie.WithSecure(true))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Delete(rec, "session")
	c := rec.Result().Cookies()[0]
	assert.Equal(t, "session", c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.Equal(t, "/app", c.Path)
	assert.True(t, c.Secure)
}
