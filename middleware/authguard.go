package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/guard"
	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/response"
	"github.com/ideatrek/authgate/core/session"
)

// Development-only diagnostic headers set by AuthGuard.
const (
	HeaderAuthDebug         = "X-Auth-Debug"
	HeaderAuthStatus        = "X-Auth-Status"
	HeaderAuthCookieCount   = "X-Auth-Cookie-Count"
	HeaderAuthError         = "X-Auth-Error"
	HeaderAuthCriticalError = "X-Auth-Critical-Error"
)

// ConfigErrorMarker is the sign-in error marker used when the identity
// backend is not configured.
const ConfigErrorMarker = "config"

type (
	sessionStoreContextKey struct{}
	authSessionContextKey  struct{}
)

// AuthGuardConfig configures the route guard middleware.
type AuthGuardConfig struct {
	Skip     func(ctx handler.Context) bool
	Guard    *guard.Guard
	Sessions *session.Factory
	Cookies  *cookie.Manager
	// IdentityConfigured is false when the identity backend URL or key is
	// missing. Every guarded navigation is then sent to sign-in.
	IdentityConfigured bool
	Logger             *slog.Logger
}

// AuthGuard runs the route guard on every navigation. It builds one
// session.Store per request over a cookie.RequestJar, stores it in the
// context and renders a 303 redirect when the guard says so.
// It panics without Guard, Sessions or Cookies.
func AuthGuard[C handler.Context](cfg AuthGuardConfig) handler.Middleware[C] {
	if cfg.Guard == nil || cfg.Sessions == nil || cfg.Cookies == nil {
		panic("authguard middleware: guard, sessions and cookies are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	dev := cfg.Guard.Development()

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			r := ctx.Request()
			h := ctx.ResponseWriter().Header()
			if dev {
				h.Set(HeaderAuthDebug, "Middleware-Active")
			}

			if !cfg.IdentityConfigured {
				cfg.Logger.ErrorContext(ctx, "identity backend credentials missing",
					logger.Component("authguard"), logger.Path(r.URL.Path))
				if dev {
					h.Set(HeaderAuthError, "Missing-Identity-Credentials")
				}
				if cfg.Guard.Classify(r.URL.Path) != guard.AuthOnly {
					q := url.Values{guard.ParamError: {ConfigErrorMarker}}
					return response.RedirectSeeOther(guard.SignInPath + "?" + q.Encode())
				}
				return next(ctx)
			}

			jar := cookie.NewRequestJar(cfg.Cookies, ctx.ResponseWriter(), r, cookie.WithLogger(cfg.Logger))
			store := cfg.Sessions.Store(jar)
			req := guard.Request{Path: r.URL.Path, Query: r.URL.Query()}

			d, panicked := decide(ctx, cfg.Guard, req, store)
			if panicked {
				cfg.Logger.ErrorContext(ctx, "route guard panicked, failing closed",
					logger.Component("authguard"), logger.Path(r.URL.Path))
				if dev {
					h.Set(HeaderAuthCriticalError, "Middleware-Exception")
				}
			}

			if dev {
				status := "Unauthenticated"
				if d.SessionPresent {
					status = "Authenticated"
				}
				h.Set(HeaderAuthStatus, status)
				h.Set(HeaderAuthCookieCount, strconv.Itoa(jar.Count()))
				if d.SessionError != nil {
					h.Set(HeaderAuthError, "Session-Error")
				}
			}

			if d.Action == guard.Redirect {
				cfg.Logger.DebugContext(ctx, "route guard redirect",
					logger.Component("authguard"),
					logger.Path(r.URL.Path),
					slog.String("class", d.Class.String()),
					slog.String("target", d.Target))
				return response.RedirectSeeOther(d.Target)
			}

			ctx.SetValue(sessionStoreContextKey{}, store)
			if d.SessionPresent && !panicked {
				if sess, err := store.Get(ctx); err == nil && sess != nil {
					ctx.SetValue(authSessionContextKey{}, sess)
				}
			}
			return next(ctx)
		}
	}
}

// decide runs the guard and falls back to deciding with no session if the
// read panics.
func decide(ctx context.Context, g *guard.Guard, req guard.Request, sessions guard.SessionReader) (d guard.Decision, panicked bool) {
	defer func() {
		if p := recover(); p != nil {
			d = g.Decide(ctx, req, absentSession{})
			panicked = true
		}
	}()
	return g.Decide(ctx, req, sessions), false
}

type absentSession struct{}

func (absentSession) Get(context.Context) (*session.Session, error) { return nil, nil }

// GetSessionStore returns the per-request session store set by AuthGuard.
func GetSessionStore(ctx handler.Context) (*session.Store, bool) {
	s, ok := ctx.Value(sessionStoreContextKey{}).(*session.Store)
	return s, ok
}

// GetAuthSession returns the session that let the request through AuthGuard.
func GetAuthSession(ctx handler.Context) (*session.Session, bool) {
	s, ok := ctx.Value(authSessionContextKey{}).(*session.Session)
	return s, ok
}
