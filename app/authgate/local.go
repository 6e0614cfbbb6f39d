package authgate

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/ideatrek/authgate/core/auth"
	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/integration/identity"
)

// Local holds a session outside of a request, with cookies kept in a file
// the way a browser keeps document.cookie.
type Local struct {
	Store *session.Store
	Auth  *auth.Authenticator
	Jar   *cookie.DocumentJar
	Doc   *cookie.FileDocument
}

// NewLocal builds a Local over the cookie file at path.
func NewLocal(cfg Config, path string, log *slog.Logger) (*Local, error) {
	provider, secret, err := identity.New(cfg.Identity, cfg.Env, log)
	if errors.Is(err, identity.ErrNotConfigured) {
		return nil, fmt.Errorf("identity backend credentials missing: set IDENTITY_URL and IDENTITY_ANON_KEY or IDENTITY_MODE=dev: %w", err)
	}
	if err != nil {
		return nil, err
	}

	host := "localhost"
	if u, err := url.Parse(cfg.Identity.SiteURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	sessCfg := cfg.Session
	if secret != "" {
		sessCfg.JWTSecret = secret
	}

	doc := cookie.NewFileDocument(path)
	jar := cookie.NewDocumentJar(cookie.NewFromConfig(cfg.Cookie), doc, host, cookie.WithLogger(log))
	store := session.NewStore(provider, jar, session.WithConfig(sessCfg), session.WithLogger(log))

	return &Local{
		Store: store,
		Auth:  auth.NewFromConfig(provider, cfg.Auth, auth.WithLogger(log)),
		Jar:   jar,
		Doc:   doc,
	}, nil
}
