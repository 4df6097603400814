package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message tags, used by Postmark for per-stream analytics.
const (
	TagAccountDeleted = "account-deleted"
	TagPasswordReset  = "password-reset"
)

// AccountDeleted builds the notice sent after an account has been removed.
func AccountDeleted(to, supportEmail string) (SendEmailParams, error) {
	return render(to, "Your account has been deleted", TagAccountDeleted, "account_deleted.html", map[string]string{
		"SupportEmail": supportEmail,
	})
}

// PasswordReset builds the recovery email carrying link.
func PasswordReset(to, link string) (SendEmailParams, error) {
	return render(to, "Reset your password", TagPasswordReset, "password_reset.html", map[string]string{
		"Link": link,
	})
}

func render(to, subject, tag, name string, data any) (SendEmailParams, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return SendEmailParams{}, fmt.Errorf("render %s: %w", name, err)
	}
	return SendEmailParams{SendTo: to, Subject: subject, BodyHTML: buf.String(), Tag: tag}, nil
}
