// Package environment names the deployment environments the service runs in.
package environment

import "strings"

// Environment represents application environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Normalize maps APP_ENV values, including the short forms dev, stage and
// prod, to an Environment. Unknown values map to Development.
func Normalize(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

// IsProduction reports whether env names the production environment.
func IsProduction(env string) bool {
	return Normalize(env) == Production
}
