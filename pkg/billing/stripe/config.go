package stripe

import (
	"fmt"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

// Config holds both credential sets; Mode picks one at startup.
type Config struct {
	Mode string `env:"BILLING_MODE" envDefault:"sandbox"`

	SandboxSecretKey     string `env:"STRIPE_SANDBOX_SECRET_KEY"`
	SandboxPriceID       string `env:"STRIPE_SANDBOX_PRICE_ID"`
	SandboxWebhookSecret string `env:"STRIPE_SANDBOX_WEBHOOK_SECRET"`

	LiveSecretKey     string `env:"STRIPE_LIVE_SECRET_KEY"`
	LivePriceID       string `env:"STRIPE_LIVE_PRICE_ID"`
	LiveWebhookSecret string `env:"STRIPE_LIVE_WEBHOOK_SECRET"`
}

// Credentials is the resolved credential set for one mode.
type Credentials struct {
	Mode          billing.Mode
	SecretKey     string
	PriceID       string
	WebhookSecret string
}

// Resolve returns the credentials for cfg.Mode. A missing value is
// reported with the name of the environment variable to set.
func (c Config) Resolve() (Credentials, error) {
	mode, err := billing.ParseMode(c.Mode)
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{Mode: mode}
	prefix := "STRIPE_SANDBOX_"
	if mode == billing.ModeLive {
		prefix = "STRIPE_LIVE_"
		creds.SecretKey, creds.PriceID, creds.WebhookSecret = c.LiveSecretKey, c.LivePriceID, c.LiveWebhookSecret
	} else {
		creds.SecretKey, creds.PriceID, creds.WebhookSecret = c.SandboxSecretKey, c.SandboxPriceID, c.SandboxWebhookSecret
	}

	switch {
	case creds.SecretKey == "":
		return Credentials{}, fmt.Errorf("%w: set %sSECRET_KEY", billing.ErrMissingAPIKey, prefix)
	case creds.PriceID == "":
		return Credentials{}, fmt.Errorf("%w: set %sPRICE_ID", billing.ErrMissingPriceID, prefix)
	case creds.WebhookSecret == "":
		return Credentials{}, fmt.Errorf("%w: set %sWEBHOOK_SECRET", billing.ErrMissingWebhookSecret, prefix)
	}
	return creds, nil
}
