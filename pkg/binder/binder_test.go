package binder_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/binder"
)

type passwords struct {
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm_password"`
}

type signup struct {
	Email    string `json:"email" form:"email"`
	Remember bool   `json:"remember" form:"remember"`
	Age      *int   `json:"age" form:"age"`
	Internal string `json:"-" form:"-"`
	passwords
}

type deleteForm struct {
	Confirmed bool   `json:"confirmed" form:"confirmed"`
	Password  string `json:"password" form:"password"`
	Tags      []string
}

func TestJSON(t *testing.T) {
	t.Parallel()
	bind := binder.JSON()

	t.Run("decodes body", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"confirmed":true,"password":"pw"}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		var got deleteForm
		require.NoError(t, bind(req, &got))
		assert.True(t, got.Confirmed)
		assert.Equal(t, "pw", got.Password)
	})

	t.Run("not applicable to forms", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.ErrorIs(t, bind(req, &deleteForm{}), binder.ErrBinderNotApplicable)
	})

	for name, body := range map[string]string{
		"empty":         "",
		"malformed":     `{"confirmed":`,
		"unknown field": `{"nope":1}`,
		"trailing data": `{"confirmed":true} {}`,
		"too large":     `{"password":"` + strings.Repeat("a", binder.MaxJSONSize) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			assert.ErrorIs(t, bind(req, &deleteForm{}), binder.ErrInvalidJSON)
		})
	}
}

func TestForm(t *testing.T) {
	t.Parallel()
	bind := binder.Form()

	t.Run("url encoded", func(t *testing.T) {
		t.Parallel()
		form := url.Values{
			"email":            {"user@example.com"},
			"remember":         {"on"},
			"age":              {"42"},
			"Internal":         {"x"},
			"password":         {"secret"},
			"confirm_password": {"secret2"},
		}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var got signup
		require.NoError(t, bind(req, &got))
		assert.Equal(t, "user@example.com", got.Email)
		assert.True(t, got.Remember)
		require.NotNil(t, got.Age)
		assert.Equal(t, 42, *got.Age)
		assert.Empty(t, got.Internal)
		assert.Equal(t, "secret", got.Password)
		assert.Equal(t, "secret2", got.Confirm)
	})

	t.Run("multipart", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("confirmed", "true"))
		require.NoError(t, mw.WriteField("password", "pw"))
		require.NoError(t, mw.WriteField("tags", "a"))
		require.NoError(t, mw.WriteField("tags", "b"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		var got deleteForm
		require.NoError(t, bind(req, &got))
		assert.True(t, got.Confirmed)
		assert.Equal(t, "pw", got.Password)
		assert.Equal(t, []string{"a", "b"}, got.Tags)
	})

	t.Run("invalid bool", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("confirmed=maybe"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.ErrorIs(t, bind(req, &deleteForm{}), binder.ErrInvalidForm)
	})

	t.Run("not applicable to json", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		assert.ErrorIs(t, bind(req, &deleteForm{}), binder.ErrBinderNotApplicable)
	})

	t.Run("target must be struct pointer", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var s string
		assert.ErrorIs(t, bind(req, &s), binder.ErrInvalidForm)
	})
}
