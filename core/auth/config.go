package auth

import "time"

// Config holds retry and policy settings for the Authenticator.
type Config struct {
	MaxRetries     int           `env:"AUTH_MAX_RETRIES" envDefault:"2"`
	Backoff        time.Duration `env:"AUTH_BACKOFF" envDefault:"1s"`
	AttemptTimeout time.Duration `env:"AUTH_ATTEMPT_TIMEOUT" envDefault:"15s"`
	// TrustSessionOverError accepts a backend response that carries both a
	// usable session and an error. Off by default: the error wins.
	TrustSessionOverError bool `env:"AUTH_TRUST_SESSION_OVER_ERROR" envDefault:"false"`
	// ResetRedirectURL is the link target of password reset emails.
	ResetRedirectURL string `env:"AUTH_RESET_REDIRECT_URL"`
}

// DefaultConfig returns the defaults: 2 retries, 1s linear backoff, 15s per attempt.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		Backoff:        time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

// Options converts the config to Authenticator options.
func (c Config) Options() []Option {
	return []Option{
		WithMaxRetries(c.MaxRetries),
		WithBackoff(c.Backoff),
		WithAttemptTimeout(c.AttemptTimeout),
		WithTrustSessionOverError(c.TrustSessionOverError),
		WithResetRedirectURL(c.ResetRedirectURL),
	}
}
