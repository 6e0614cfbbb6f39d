package config

import "strings"

// Environment names recognized across packages.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// IsProduction reports whether env names a production deployment.
// Unknown or empty values are not production.
func IsProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvProduction, "prod":
		return true
	}
	return false
}

// IsDevelopment reports whether env explicitly names a development build.
// Only an explicit value counts, so an unset environment never enables
// development-only behavior.
func IsDevelopment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvDevelopment, "dev", "local":
		return true
	}
	return false
}
