package supabase

import "time"

// Config holds the Supabase project settings.
type Config struct {
	URL            string        `env:"SUPABASE_URL,required"`
	AnonKey        string        `env:"SUPABASE_ANON_KEY,required"`
	ServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"` // required for DeleteUser
	JWTSecret      string        `env:"SUPABASE_JWT_SECRET"`       // enables local token verification
	Timeout        time.Duration `env:"SUPABASE_TIMEOUT" envDefault:"10s"`
}
