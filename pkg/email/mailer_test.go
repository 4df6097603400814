package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{SendTo: "user@example.com", Subject: "Hi", BodyHTML: "<p>hi</p>"}
	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		field  string
	}{
		{name: "valid", mutate: func(*email.SendEmailParams) {}},
		{name: "missing recipient", mutate: func(p *email.SendEmailParams) { p.SendTo = " " }, field: "SendTo is required"},
		{name: "malformed recipient", mutate: func(p *email.SendEmailParams) { p.SendTo = "user@localhost" }, field: "SendTo must be"},
		{name: "missing subject", mutate: func(p *email.SendEmailParams) { p.Subject = "" }, field: "Subject"},
		{name: "missing body", mutate: func(p *email.SendEmailParams) { p.BodyHTML = "\n" }, field: "BodyHTML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	t.Run("writes body and metadata", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "outbox")
		msg, err := email.AccountDeleted("user@example.com", "support@example.com")
		require.NoError(t, err)
		require.NoError(t, email.NewDevSender(dir).SendEmail(context.Background(), msg))

		htmlFiles, err := filepath.Glob(filepath.Join(dir, "*_account-deleted.html"))
		require.NoError(t, err)
		require.Len(t, htmlFiles, 1)
		body, err := os.ReadFile(htmlFiles[0])
		require.NoError(t, err)
		assert.Equal(t, msg.BodyHTML, string(body))

		raw, err := os.ReadFile(strings.TrimSuffix(htmlFiles[0], ".html") + ".json")
		require.NoError(t, err)
		var meta map[string]string
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, "user@example.com", meta["send_to"])
		assert.Equal(t, email.TagAccountDeleted, meta["tag"])
		assert.NotEmpty(t, meta["timestamp"])
	})

	t.Run("untagged message is named after the subject", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		err := email.NewDevSender(dir).SendEmail(context.Background(), email.SendEmailParams{
			SendTo: "user@example.com", Subject: "Hello / World?", BodyHTML: "<p>x</p>",
		})
		require.NoError(t, err)
		files, err := filepath.Glob(filepath.Join(dir, "*_hello__world.html"))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		err := email.NewDevSender(dir).SendEmail(context.Background(), email.SendEmailParams{SendTo: "nope"})
		assert.ErrorIs(t, err, email.ErrInvalidParams)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unwritable directory", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		msg, err := email.PasswordReset("user@example.com", "https://app.example.com/auth/reset-password?token=x")
		require.NoError(t, err)
		err = email.NewDevSender(filepath.Join(file, "sub")).SendEmail(context.Background(), msg)
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("dev driver", func(t *testing.T) {
		t.Parallel()
		sender, err := email.New(email.Config{Driver: "dev", DevDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, sender)
	})

	t.Run("empty driver falls back to dev", func(t *testing.T) {
		t.Parallel()
		sender, err := email.New(email.Config{DevDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, sender)
	})

	t.Run("postmark driver validates config", func(t *testing.T) {
		t.Parallel()
		_, err := email.New(email.Config{Driver: "postmark"})
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := email.New(email.Config{Driver: "smtp"})
		assert.ErrorIs(t, err, email.ErrUnknownDriver)
	})
}

func TestMessages(t *testing.T) {
	t.Parallel()

	t.Run("account deleted", func(t *testing.T) {
		t.Parallel()
		params, err := email.AccountDeleted("user@example.com", "support@example.com")
		require.NoError(t, err)
		require.NoError(t, params.Validate())
		assert.Equal(t, email.TagAccountDeleted, params.Tag)
		assert.Contains(t, params.BodyHTML, "mailto:support@example.com")
	})

	t.Run("password reset escapes link", func(t *testing.T) {
		t.Parallel()
		params, err := email.PasswordReset("user@example.com", "https://app.example.com/reset?token=a&b=<c>")
		require.NoError(t, err)
		require.NoError(t, params.Validate())
		assert.Equal(t, email.TagPasswordReset, params.Tag)
		assert.Contains(t, params.BodyHTML, "token=a&amp;b=")
		assert.NotContains(t, params.BodyHTML, "<c>")
	})
}
