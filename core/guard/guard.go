package guard

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/ideatrek/authgate/core/config"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
)

// Action is the outcome of a decision.
type Action int

const (
	Allow Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "allow"
}

// Request is the part of an HTTP request the guard looks at.
type Request struct {
	Path  string
	Query url.Values
}

// Decision is the result of Decide.
type Decision struct {
	Action Action
	// Target is a relative URL, set for Redirect.
	Target string
	// PreservedQuery holds the caller's query parameters forwarded to Target.
	PreservedQuery url.Values

	// Diagnostic only.
	Class          Class
	SessionPresent bool
	SessionError   error
	Bypassed       bool
}

// SessionReader reads the current session. *session.Store implements it.
type SessionReader interface {
	Get(ctx context.Context) (*session.Session, error)
}

// Metrics receives guard decisions.
type Metrics interface {
	GuardDecision(class, action string)
}

type noopMetrics struct{}

func (noopMetrics) GuardDecision(string, string) {}

// Guard decides whether a navigation may proceed.
type Guard struct {
	routes  Routes
	env     string
	bypass  bool
	now     func() time.Time
	log     *slog.Logger
	metrics Metrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithEnvironment sets the deployment environment name.
func WithEnvironment(env string) Option {
	return func(g *Guard) { g.env = env }
}

// WithDebugBypass honors the debugBypass query flag on protected routes.
// It only takes effect in an explicit development environment.
func WithDebugBypass() Option {
	return func(g *Guard) { g.bypass = true }
}

// WithRoutes replaces DefaultRoutes.
func WithRoutes(r Routes) Option {
	return func(g *Guard) { g.routes = r }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(g *Guard) {
		if m != nil {
			g.metrics = m
		}
	}
}

// New creates a Guard. Enabling the debug bypass in production fails.
func New(opts ...Option) (*Guard, error) {
	g := &Guard{
		routes:  DefaultRoutes(),
		now:     time.Now,
		log:     logger.Discard(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.bypass && config.IsProduction(g.env) {
		return nil, ErrBypassInProduction
	}
	return g, nil
}

// Development reports whether the guard runs in an explicit development
// environment.
func (g *Guard) Development() bool {
	return config.IsDevelopment(g.env)
}

// Classify returns the class of path under the guard's routes.
func (g *Guard) Classify(path string) Class {
	return g.routes.Classify(path)
}

// Decide applies the route decision table. It never fails: a session read
// error counts as no session.
func (g *Guard) Decide(ctx context.Context, req Request, sessions SessionReader) Decision {
	d := g.decide(ctx, req, sessions)
	g.metrics.GuardDecision(d.Class.String(), d.Action.String())
	return d
}

func (g *Guard) decide(ctx context.Context, req Request, sessions SessionReader) Decision {
	d := Decision{Action: Allow, Class: g.routes.Classify(req.Path)}
	if d.Class == Public {
		return d
	}

	sess, err := sessions.Get(ctx)
	if err != nil {
		g.log.WarnContext(ctx, "session read failed, treating as signed out",
			logger.Component("guard"), logger.Path(req.Path), logger.Error(err))
	}
	d.SessionError = err
	d.SessionPresent = err == nil && sess.Valid(g.now())

	switch d.Class {
	case Protected:
		if d.SessionPresent {
			return d
		}
		if g.bypassRequested(req.Query) {
			g.log.WarnContext(ctx, "debug bypass on protected route",
				logger.Component("guard"), logger.Path(req.Path))
			d.Bypassed = true
			return d
		}
		d.Action = Redirect
		d.Target, d.PreservedQuery = g.signInTarget(req, err != nil)
	case AuthOnly, Root:
		if d.SessionPresent {
			d.Action = Redirect
			d.Target = DashboardPath
		}
	}
	return d
}

func (g *Guard) bypassRequested(q url.Values) bool {
	if !g.bypass || !g.Development() || config.IsProduction(g.env) {
		return false
	}
	if !q.Has(ParamDebugBypass) {
		return false
	}
	switch q.Get(ParamDebugBypass) {
	case "false", "0":
		return false
	}
	return true
}

func (g *Guard) signInTarget(req Request, readFailed bool) (string, url.Values) {
	preserved := url.Values{}
	for k, vs := range req.Query {
		if k == ParamRedirectTo || k == ParamSessionError {
			continue
		}
		preserved[k] = append([]string(nil), vs...)
	}

	q := url.Values{}
	for k, vs := range preserved {
		q[k] = vs
	}
	q.Set(ParamRedirectTo, req.Path)
	if readFailed && g.Development() {
		q.Set(ParamSessionError, "true")
	}
	return SignInPath + "?" + q.Encode(), preserved
}
