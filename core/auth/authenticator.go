package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/pkg/async"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper is the default Sleeper.
func ContextSleeper(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Authenticator signs users in against a session.Provider with bounded
// retries and a per-attempt timeout. It is safe for concurrent use; all
// per-context state lives in the session.Store passed to each call.
type Authenticator struct {
	provider       session.Provider
	maxRetries     int
	backoff        time.Duration
	attemptTimeout time.Duration
	trustSession   bool
	resetRedirect  string
	sleep          Sleeper
	now            func() time.Time
	log            *slog.Logger
	metrics        Metrics
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(a *Authenticator) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// WithBackoff sets the base delay; retry k waits k*d.
func WithBackoff(d time.Duration) Option {
	return func(a *Authenticator) {
		if d >= 0 {
			a.backoff = d
		}
	}
}

// WithAttemptTimeout bounds each backend call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.attemptTimeout = d
		}
	}
}

// WithTrustSessionOverError makes a usable session win over an error
// reported in the same backend response.
func WithTrustSessionOverError(trust bool) Option {
	return func(a *Authenticator) { a.trustSession = trust }
}

// WithResetRedirectURL sets the link target of password reset emails.
func WithResetRedirectURL(u string) Option {
	return func(a *Authenticator) { a.resetRedirect = u }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(a *Authenticator) {
		if s != nil {
			a.sleep = s
		}
	}
}

// WithClock overrides time.Now for elapsed time reporting.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Authenticator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// NewAuthenticator creates an Authenticator for provider.
func NewAuthenticator(provider session.Provider, opts ...Option) *Authenticator {
	d := DefaultConfig()
	a := &Authenticator{
		provider:       provider,
		maxRetries:     d.MaxRetries,
		backoff:        d.Backoff,
		attemptTimeout: d.AttemptTimeout,
		sleep:          ContextSleeper,
		now:            time.Now,
		log:            logger.Discard(),
		metrics:        noopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig creates an Authenticator from cfg. Later opts win.
func NewFromConfig(provider session.Provider, cfg Config, opts ...Option) *Authenticator {
	return NewAuthenticator(provider, append(cfg.Options(), opts...)...)
}

// MaxAttempts returns the total number of backend calls a sign-in may make.
func (a *Authenticator) MaxAttempts() int {
	return a.maxRetries + 1
}

type credentials struct {
	email    string
	password string
}

// SignIn authenticates with email and password and persists the session
// through store. Any returned error is an *Error.
func (a *Authenticator) SignIn(ctx context.Context, store *session.Store, email, password string) (sess *session.Session, err error) {
	const op = "signin"
	start := a.now()
	attempts := 0

	defer func() {
		if p := recover(); p != nil {
			a.log.ErrorContext(ctx, "sign-in panicked",
				logger.Component("auth"), slog.Any("panic", p))
			sess, err = nil, a.fail(ctx, op, &Error{Kind: Unknown, Message: MsgUnexpected}, attempts, start)
		}
	}()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, a.fail(ctx, op, &Error{Kind: InvalidCredentials, Message: MsgMissingCredentials}, 0, start)
	}

	store.Clear()
	if store.Bridge().Blocked() {
		return nil, a.fail(ctx, op, &Error{Kind: CookieBlocked, Message: MsgCookieBlocked, Cause: session.ErrCookieBlocked}, 0, start)
	}

	creds := credentials{email: email, password: password}
	var last *Error
	for attempt := range a.maxRetries + 1 {
		if attempt > 0 {
			delay := time.Duration(attempt) * a.backoff
			a.log.InfoContext(ctx, "retrying sign-in",
				logger.Component("auth"), logger.Attempt(attempt+1), logger.Duration(delay),
				logger.ErrorKind(string(last.Kind)))
			if err := a.sleep(ctx, delay); err != nil {
				return nil, a.fail(ctx, op, cancelled(ctx, a.now().Sub(start)), attempts, start)
			}
		}

		attempts++
		grant, timedOut, callErr := a.attempt(ctx, creds)

		if ctx.Err() != nil && (callErr != nil || !grant.HasSession()) {
			a.metrics.AuthAttempt(op, "cancelled")
			return nil, a.fail(ctx, op, cancelled(ctx, a.now().Sub(start)), attempts, start)
		}

		if callErr == nil || (a.trustSession && grant.HasSession()) {
			if callErr != nil {
				a.log.WarnContext(ctx, "accepting session despite backend error",
					logger.Component("auth"), logger.Error(callErr))
			}
			a.metrics.AuthAttempt(op, "success")
			return a.establish(ctx, store, grant, attempts, start)
		}
		if grant.HasSession() {
			a.log.WarnContext(ctx, "discarding session returned with backend error",
				logger.Component("auth"), logger.Error(callErr))
		}

		e, retry := classify(callErr, timedOut)
		if e.Kind == Timeout {
			e.Message = timeoutMessage(a.now().Sub(start))
		}
		a.metrics.AuthAttempt(op, string(e.Kind))
		a.log.DebugContext(ctx, "sign-in attempt failed",
			logger.Component("auth"), logger.Attempt(attempts),
			logger.ErrorKind(string(e.Kind)), logger.Error(callErr))

		if !retry {
			return nil, a.fail(ctx, op, e, attempts, start)
		}
		last = e
	}

	if last == nil {
		last = &Error{Kind: Unknown, Message: MsgExhausted}
	}
	return nil, a.fail(ctx, op, last, attempts, start)
}

// attempt runs one backend call raced against the attempt timeout. The call
// runs on a context cancelled when the attempt ends, so a late result is
// aborted and never reaches the store.
func (a *Authenticator) attempt(ctx context.Context, creds credentials) (*session.Grant, bool, error) {
	actx, cancel := context.WithTimeout(ctx, a.attemptTimeout)
	defer cancel()

	f := async.Async(actx, creds, func(ctx context.Context, c credentials) (*session.Grant, error) {
		return a.provider.SignInWithPassword(ctx, c.email, c.password)
	})
	grant, err := f.AwaitContext(actx)
	if err == nil {
		return grant, false, nil
	}
	timedOut := ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded)
	return grant, timedOut, err
}

// establish persists grant and forces a refresh so the cookies carry a
// freshly rotated session before the caller navigates away. A failed
// refresh keeps the signed-in session.
func (a *Authenticator) establish(ctx context.Context, store *session.Store, grant *session.Grant, attempts int, start time.Time) (*session.Session, error) {
	const op = "signin"

	sess, err := store.Establish(grant)
	if err != nil {
		e, _ := classify(err, false)
		return nil, a.fail(ctx, op, e, attempts, start)
	}

	if refreshed, err := store.Refresh(ctx); err != nil {
		a.log.WarnContext(ctx, "post sign-in refresh failed",
			logger.Component("auth"), logger.UserID(sess.User.ID), logger.Error(err))
	} else {
		sess = refreshed
	}

	elapsed := a.now().Sub(start)
	a.metrics.AuthResult(op, "success", attempts, elapsed)
	a.log.InfoContext(ctx, "signed in",
		logger.Component("auth"), logger.UserID(sess.User.ID),
		logger.Attempt(attempts), logger.Duration(elapsed))
	return sess, nil
}

// SignUp registers a new account. It returns a nil session without error
// when the backend requires email confirmation first.
func (a *Authenticator) SignUp(ctx context.Context, store *session.Store, email, password string) (sess *session.Session, err error) {
	const op = "signup"
	start := a.now()

	defer func() {
		if p := recover(); p != nil {
			sess, err = nil, a.fail(ctx, op, &Error{Kind: Unknown, Message: MsgUnexpected}, 1, start)
		}
	}()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, a.fail(ctx, op, &Error{Kind: InvalidCredentials, Message: MsgMissingCredentials}, 0, start)
	}

	grant, err := a.call(ctx, func(ctx context.Context) (*session.Grant, error) {
		return a.provider.SignUp(ctx, email, password)
	})
	if err != nil {
		return nil, a.fail(ctx, op, a.classifyOnce(ctx, err, start), 1, start)
	}
	if !grant.HasSession() {
		a.metrics.AuthResult(op, "pending_confirmation", 1, a.now().Sub(start))
		a.log.InfoContext(ctx, "sign-up awaiting confirmation",
			logger.Component("auth"), logger.UserID(grant.User.ID))
		return nil, nil
	}

	store.Clear()
	sess, err = store.Establish(grant)
	if err != nil {
		e, _ := classify(err, false)
		return nil, a.fail(ctx, op, e, 1, start)
	}
	a.metrics.AuthResult(op, "success", 1, a.now().Sub(start))
	return sess, nil
}

// ResetPassword asks the backend to email a reset link.
func (a *Authenticator) ResetPassword(ctx context.Context, email string) error {
	const op = "reset"
	start := a.now()

	email = strings.TrimSpace(email)
	if email == "" {
		return a.fail(ctx, op, &Error{Kind: InvalidCredentials, Message: MsgMissingEmail}, 0, start)
	}

	_, err := a.call(ctx, func(ctx context.Context) (*session.Grant, error) {
		return nil, a.provider.ResetPassword(ctx, email, a.resetRedirect)
	})
	if err != nil {
		return a.fail(ctx, op, a.classifyOnce(ctx, err, start), 1, start)
	}
	a.metrics.AuthResult(op, "success", 1, a.now().Sub(start))
	return nil
}

// SignOut ends the session. Local cookies are always cleared; a backend
// failure is only logged.
func (a *Authenticator) SignOut(ctx context.Context, store *session.Store) error {
	if err := store.SignOut(ctx); err != nil {
		a.log.WarnContext(ctx, "backend sign-out failed",
			logger.Component("auth"), logger.Error(err))
	}
	if store.Bridge().Blocked() {
		return &Error{Kind: CookieBlocked, Message: MsgCookieBlocked, Cause: session.ErrCookieBlocked}
	}
	a.metrics.AuthResult("signout", "success", 1, 0)
	return nil
}

// call runs a single backend call under the attempt timeout.
func (a *Authenticator) call(ctx context.Context, fn func(context.Context) (*session.Grant, error)) (*session.Grant, error) {
	actx, cancel := context.WithTimeout(ctx, a.attemptTimeout)
	defer cancel()

	f := async.Async(actx, struct{}{}, func(ctx context.Context, _ struct{}) (*session.Grant, error) {
		return fn(ctx)
	})
	return f.AwaitContext(actx)
}

func (a *Authenticator) classifyOnce(ctx context.Context, err error, start time.Time) *Error {
	if ctx.Err() != nil {
		return cancelled(ctx, a.now().Sub(start))
	}
	e, _ := classify(err, errors.Is(err, context.DeadlineExceeded))
	if e.Kind == Timeout {
		e.Message = timeoutMessage(a.now().Sub(start))
	}
	return e
}

func (a *Authenticator) fail(ctx context.Context, op string, e *Error, attempts int, start time.Time) *Error {
	elapsed := a.now().Sub(start)
	e = e.with(attempts, elapsed)
	a.metrics.AuthResult(op, string(e.Kind), attempts, elapsed)
	a.log.WarnContext(ctx, "authentication failed",
		logger.Component("auth"),
		logger.Action(op),
		logger.ErrorKind(string(e.Kind)),
		logger.Attempt(attempts),
		logger.Duration(elapsed),
		logger.Error(e.Cause))
	return e
}

func cancelled(ctx context.Context, elapsed time.Duration) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Message: timeoutMessage(elapsed), Cause: ctx.Err()}
	}
	return &Error{Kind: Unknown, Message: MsgCancelled, Cause: ctx.Err()}
}
