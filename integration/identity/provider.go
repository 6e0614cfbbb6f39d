package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ideatrek/authgate/core/session"
)

// New selects the provider strategy named by cfg.Mode. It also returns the
// secret a session.Store needs to verify tokens minted by the provider, which
// is empty for the HTTP backend.
func New(cfg Config, env string, log *slog.Logger) (session.Provider, string, error) {
	switch cfg.Mode {
	case "", ModeGoTrue:
		c, err := NewClient(cfg, WithLogger(log))
		if err != nil {
			return nil, "", err
		}
		return c, "", nil
	case ModeDev:
		p, err := NewDevProvider(env, cfg.DevSecret, WithDevLogger(log))
		if err != nil {
			return nil, "", err
		}
		return p, p.Secret(), nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// Unconfigured is the provider used when backend credentials are missing.
// Every call fails with ErrNotConfigured.
type Unconfigured struct{}

var _ session.Provider = Unconfigured{}

func (Unconfigured) SignInWithPassword(context.Context, string, string) (*session.Grant, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) RefreshSession(context.Context, string) (*session.Grant, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ExchangeCode(context.Context, string, string) (*session.Grant, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) SignOut(context.Context, string) error { return ErrNotConfigured }

func (Unconfigured) SignUp(context.Context, string, string) (*session.Grant, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ResetPassword(context.Context, string, string) error { return ErrNotConfigured }

func (Unconfigured) Health(context.Context) error { return ErrNotConfigured }
