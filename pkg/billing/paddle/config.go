package paddle

import (
	"fmt"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

// Config holds both credential sets; Mode picks one at startup.
type Config struct {
	Mode string `env:"BILLING_MODE" envDefault:"sandbox"`

	SandboxAPIKey        string `env:"PADDLE_SANDBOX_API_KEY"`
	SandboxPriceID       string `env:"PADDLE_SANDBOX_PRICE_ID"`
	SandboxWebhookSecret string `env:"PADDLE_SANDBOX_WEBHOOK_SECRET"`

	LiveAPIKey        string `env:"PADDLE_LIVE_API_KEY"`
	LivePriceID       string `env:"PADDLE_LIVE_PRICE_ID"`
	LiveWebhookSecret string `env:"PADDLE_LIVE_WEBHOOK_SECRET"`
}

type Credentials struct {
	Mode          billing.Mode
	APIKey        string
	PriceID       string
	WebhookSecret string
}

// Resolve returns the credentials for cfg.Mode, naming the missing variable on error.
func (c Config) Resolve() (Credentials, error) {
	mode, err := billing.ParseMode(c.Mode)
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{Mode: mode}
	prefix := "PADDLE_SANDBOX_"
	if mode == billing.ModeLive {
		prefix = "PADDLE_LIVE_"
		creds.APIKey, creds.PriceID, creds.WebhookSecret = c.LiveAPIKey, c.LivePriceID, c.LiveWebhookSecret
	} else {
		creds.APIKey, creds.PriceID, creds.WebhookSecret = c.SandboxAPIKey, c.SandboxPriceID, c.SandboxWebhookSecret
	}

	switch {
	case creds.APIKey == "":
		return Credentials{}, fmt.Errorf("%w: set %sAPI_KEY", billing.ErrMissingAPIKey, prefix)
	case creds.PriceID == "":
		return Credentials{}, fmt.Errorf("%w: set %sPRICE_ID", billing.ErrMissingPriceID, prefix)
	case creds.WebhookSecret == "":
		return Credentials{}, fmt.Errorf("%w: set %sWEBHOOK_SECRET", billing.ErrMissingWebhookSecret, prefix)
	}
	return creds, nil
}
