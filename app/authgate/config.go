package authgate

import (
	"time"

	"github.com/ideatrek/authgate/core/auth"
	"github.com/ideatrek/authgate/core/config"
	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/server"
	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/integration/database/redis"
	"github.com/ideatrek/authgate/integration/identity"
	"github.com/ideatrek/authgate/pkg/ratelimiter"
)

// Config aggregates the configuration of every component.
type Config struct {
	Identity  identity.Config
	Redis     redis.Config
	Cookie    cookie.Config
	Session   session.Config
	Server    server.Config
	Auth      auth.Config
	RateLimit ratelimiter.Config `envPrefix:"AUTH_RATELIMIT_"`

	AppName  string `env:"APP_NAME" envDefault:"authgate"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// DebugBypass honors the debugBypass query flag in development.
	DebugBypass bool `env:"AUTH_DEBUG_BYPASS" envDefault:"false"`
}

// LoadConfig reads Config from the environment and an optional .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the component defaults for a development build
// without backend credentials.
func DefaultConfig() Config {
	return Config{
		Identity:  identity.DefaultConfig(),
		Cookie:    cookie.DefaultConfig(),
		Session:   session.DefaultConfig(),
		Server:    server.DefaultConfig(),
		Auth:      auth.DefaultConfig(),
		RateLimit: ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: 30 * time.Second},
		AppName:   "authgate",
		Env:       config.EnvDevelopment,
		LogLevel:  "info",
	}
}
