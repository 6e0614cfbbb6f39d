package auth

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/ideatrek/authgate/core/guard"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
)

// Callback error markers appended to the sign-in URL.
const (
	CallbackErrorRead      = "authcallback"
	CallbackErrorNoSession = "nosession"
	CallbackErrorException = "callbackexception"
)

// Callback carries the query of an OAuth provider redirect.
type Callback struct {
	Code         string
	CodeVerifier string
	// ProviderError is the error reported by the OAuth provider, if any.
	ProviderError string
}

// Target is where the client goes after the callback.
type Target struct {
	URL string
	// FullReload asks for a full page navigation instead of an in-app one,
	// so the browser re-sends freshly written cookies.
	FullReload bool
	// Reason describes the outcome for logs and diagnostics.
	Reason string
}

// Finalizer completes an OAuth redirect once per execution context. The HTTP
// callback builds one per request; a repeated request with the same code is
// answered by the Store's exchange cache, which replays the first grant for
// the session ExchangeCacheTTL.
type Finalizer struct {
	store *session.Store
	log   *slog.Logger

	once   sync.Once
	target Target
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithFinalizerLogger sets the logger.
func WithFinalizerLogger(l *slog.Logger) FinalizerOption {
	return func(f *Finalizer) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFinalizer creates a Finalizer over store.
func NewFinalizer(store *session.Store, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{store: store, log: logger.Discard()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Complete runs the callback flow the first time it is called and returns
// the same Target on every later call.
func (f *Finalizer) Complete(ctx context.Context, cb Callback) Target {
	f.once.Do(func() {
		f.target = f.run(ctx, cb)
		f.log.InfoContext(ctx, "auth callback completed",
			logger.Component("callback"),
			logger.Result(f.target.Reason),
			slog.String("target", f.target.URL),
			slog.Bool("full_reload", f.target.FullReload))
	})
	return f.target
}

func (f *Finalizer) run(ctx context.Context, cb Callback) (t Target) {
	defer func() {
		if p := recover(); p != nil {
			f.log.ErrorContext(ctx, "auth callback panicked",
				logger.Component("callback"), slog.Any("panic", p))
			t = signInWithError(CallbackErrorException, "panic")
		}
	}()

	if cb.ProviderError != "" {
		f.log.WarnContext(ctx, "oauth provider reported an error",
			logger.Component("callback"), slog.String("provider_error", cb.ProviderError))
		f.store.ClearStale(ctx)
		return signInWithError(CallbackErrorRead, "provider_error")
	}

	if cb.Code != "" {
		if _, err := f.store.ExchangeCode(ctx, cb.Code, cb.CodeVerifier); err != nil {
			f.log.WarnContext(ctx, "code exchange failed",
				logger.Component("callback"), logger.Error(err))
			return signInWithError(CallbackErrorRead, "exchange_failed")
		}
	} else if f.store.ClearStale(ctx) {
		f.log.DebugContext(ctx, "cleared stale session artifacts", logger.Component("callback"))
	}

	sess, err := f.store.Get(ctx)
	if err != nil {
		f.log.WarnContext(ctx, "session read failed",
			logger.Component("callback"), logger.Error(err))
		return signInWithError(CallbackErrorRead, "read_error")
	}
	if sess == nil {
		return signInWithError(CallbackErrorNoSession, "no_session")
	}

	if _, err := f.store.Refresh(ctx); err != nil {
		f.log.WarnContext(ctx, "callback refresh failed, forcing full reload",
			logger.Component("callback"), logger.UserID(sess.User.ID), logger.Error(err))
		return Target{URL: guard.DashboardPath, FullReload: true, Reason: "refresh_failed"}
	}
	return Target{URL: guard.DashboardPath, Reason: "ok"}
}

func signInWithError(marker, reason string) Target {
	q := url.Values{guard.ParamError: {marker}}
	return Target{URL: guard.SignInPath + "?" + q.Encode(), Reason: reason}
}
