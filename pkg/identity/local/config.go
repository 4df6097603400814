package local

import (
	"errors"
	"time"
)

var ErrWeakSecret = errors.New("local auth: LOCAL_AUTH_SECRET must be at least 32 bytes")

// Config configures the in-memory development auth driver.
type Config struct {
	Secret     string        `env:"LOCAL_AUTH_SECRET"`
	SessionTTL time.Duration `env:"LOCAL_AUTH_SESSION_TTL" envDefault:"24h"`
	ResetTTL   time.Duration `env:"LOCAL_AUTH_RESET_TTL" envDefault:"1h"`
	BcryptCost int           `env:"LOCAL_AUTH_BCRYPT_COST" envDefault:"10"`
}
