package session

import "time"

// Config holds cookie names and token handling settings.
type Config struct {
	AccessCookie   string `env:"SESSION_ACCESS_COOKIE" envDefault:"sb-access-token"`
	RefreshCookie  string `env:"SESSION_REFRESH_COOKIE" envDefault:"sb-refresh-token"`
	ProviderCookie string `env:"SESSION_PROVIDER_COOKIE" envDefault:"supabase-auth-token"`
	// JWTSecret verifies HS256 access tokens. Empty disables verification,
	// which the app refuses in production.
	JWTSecret string `env:"SESSION_JWT_SECRET"`
	// ExchangeCacheTTL bounds how long a refresh or code exchange result is
	// replayed for repeated calls with the same input.
	ExchangeCacheTTL time.Duration `env:"SESSION_EXCHANGE_CACHE_TTL" envDefault:"30s"`
	// RedisPrefix namespaces exchange cache keys in Redis.
	RedisPrefix string `env:"SESSION_REDIS_PREFIX" envDefault:"authgate:exchange:"`
}

// DefaultConfig returns the default cookie names and cache TTL.
func DefaultConfig() Config {
	return Config{
		AccessCookie:     "sb-access-token",
		RefreshCookie:    "sb-refresh-token",
		ProviderCookie:   "supabase-auth-token",
		ExchangeCacheTTL: 30 * time.Second,
		RedisPrefix:      "authgate:exchange:",
	}
}

// CookieNames returns every cookie the store writes.
func (c Config) CookieNames() []string {
	return []string{c.AccessCookie, c.RefreshCookie, c.ProviderCookie}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AccessCookie == "" {
		c.AccessCookie = d.AccessCookie
	}
	if c.RefreshCookie == "" {
		c.RefreshCookie = d.RefreshCookie
	}
	if c.ProviderCookie == "" {
		c.ProviderCookie = d.ProviderCookie
	}
	if c.ExchangeCacheTTL <= 0 {
		c.ExchangeCacheTTL = d.ExchangeCacheTTL
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = d.RedisPrefix
	}
	return c
}
