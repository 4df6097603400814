package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/email"
)

func postmarkConfig() email.Config {
	return email.Config{
		Driver:               "postmark",
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "sender@example.com",
		SupportEmail:         "support@example.com",
	}
}

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.Config)
		field  string
	}{
		{name: "valid", mutate: func(*email.Config) {}},
		{name: "server token", mutate: func(c *email.Config) { c.PostmarkServerToken = "" }, field: "PostmarkServerToken"},
		{name: "account token", mutate: func(c *email.Config) { c.PostmarkAccountToken = "" }, field: "PostmarkAccountToken"},
		{name: "sender missing", mutate: func(c *email.Config) { c.SenderEmail = "" }, field: "SenderEmail is required"},
		{name: "sender malformed", mutate: func(c *email.Config) { c.SenderEmail = "sender" }, field: "SenderEmail must be"},
		{name: "support missing", mutate: func(c *email.Config) { c.SupportEmail = "" }, field: "SupportEmail is required"},
		{name: "support malformed", mutate: func(c *email.Config) { c.SupportEmail = "help@" }, field: "SupportEmail must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := postmarkConfig()
			tt.mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			if tt.field == "" {
				require.NoError(t, err)
				assert.NotNil(t, client)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestPostmarkClient_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	client, err := email.NewPostmarkClient(postmarkConfig(), email.WithPostmarkBaseURL(srv.URL))
	require.NoError(t, err)
	err = client.SendEmail(context.Background(), email.SendEmailParams{SendTo: "user@example.com", Subject: "Hi"})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
	assert.Zero(t, calls)
}

func TestPostmarkClient_SendEmail_HTTP(t *testing.T) {
	t.Parallel()

	cfg := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "sender@example.com",
		SupportEmail:         "support@example.com",
	}
	params := email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Hello",
		BodyHTML: "<p>hi</p>",
		Tag:      "test",
	}

	t.Run("delivers message", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/email", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"To":"user@example.com","MessageID":"abc","ErrorCode":0,"Message":"OK"}`))
		}))
		defer srv.Close()

		client, err := email.NewPostmarkClient(cfg, email.WithPostmarkBaseURL(srv.URL))
		require.NoError(t, err)
		require.NoError(t, client.SendEmail(context.Background(), params))

		assert.Equal(t, "sender@example.com", got["From"])
		assert.Equal(t, "support@example.com", got["ReplyTo"])
		assert.Equal(t, "user@example.com", got["To"])
		assert.Equal(t, "test", got["Tag"])
	})

	t.Run("api error code", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
		}))
		defer srv.Close()

		client, err := email.NewPostmarkClient(cfg, email.WithPostmarkBaseURL(srv.URL))
		require.NoError(t, err)
		err = client.SendEmail(context.Background(), params)
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})
}
