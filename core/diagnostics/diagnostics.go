package diagnostics

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ideatrek/authgate/core/health"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/pkg/async"
	"github.com/ideatrek/authgate/pkg/clientip"
)

// Thresholds above which a probe is reported as slow.
const (
	DefaultSlowAuth       = time.Second
	DefaultSlowDependency = 500 * time.Millisecond
	DefaultProbeTimeout   = 5 * time.Second
)

// placeholderKey marks an API key that was revoked but never replaced.
const placeholderKey = "REPLACE_AFTER_ROTATION"

// Config describes what the diagnostician reports about the deployment.
type Config struct {
	Environment string
	IdentityURL string
	IdentityKey string
	// CookieNames are the session cookies the client is expected to carry.
	CookieNames []string
}

// Diagnostician builds troubleshooting reports for sign-in problems.
type Diagnostician struct {
	cfg          Config
	authCheck    func(context.Context) error
	deps         []health.Check
	slowAuth     time.Duration
	slowDep      time.Duration
	probeTimeout time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// Option configures a Diagnostician.
type Option func(*Diagnostician)

// WithDependency adds an infrastructure probe to the report.
func WithDependency(c health.Check) Option {
	return func(d *Diagnostician) {
		if c.Fn != nil {
			d.deps = append(d.deps, c)
		}
	}
}

// WithSlowThresholds overrides the slow auth and dependency thresholds.
func WithSlowThresholds(auth, dependency time.Duration) Option {
	return func(d *Diagnostician) {
		if auth > 0 {
			d.slowAuth = auth
		}
		if dependency > 0 {
			d.slowDep = dependency
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Diagnostician) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Diagnostician) {
		if l != nil {
			d.log = l
		}
	}
}

// New creates a Diagnostician. authCheck probes the identity backend,
// usually session.Provider.Health.
func New(cfg Config, authCheck func(context.Context) error, opts ...Option) *Diagnostician {
	d := &Diagnostician{
		cfg:          cfg,
		authCheck:    authCheck,
		slowAuth:     DefaultSlowAuth,
		slowDep:      DefaultSlowDependency,
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.cfg.CookieNames) == 0 {
		d.cfg.CookieNames = session.DefaultConfig().CookieNames()
	}
	return d
}

// ServiceStatus is the outcome of one probe.
type ServiceStatus struct {
	Operational  bool   `json:"operational"`
	Error        string `json:"error,omitempty"`
	ResponseTime string `json:"response_time,omitempty"`
	Slow         bool   `json:"slow,omitempty"`
}

// probe runs fn under the probe timeout and times it.
func (d *Diagnostician) probe(ctx context.Context, fn func(context.Context) error, slow time.Duration) ServiceStatus {
	if fn == nil {
		return ServiceStatus{Error: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	start := d.now()
	err := async.Exec(ctx, struct{}{}, func(ctx context.Context, _ struct{}) error {
		return fn(ctx)
	}).AwaitContext(ctx)
	elapsed := d.now().Sub(start)

	st := ServiceStatus{
		Operational:  err == nil,
		ResponseTime: elapsed.Round(time.Millisecond).String(),
		Slow:         elapsed > slow,
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// probeAll runs the auth probe and every dependency concurrently.
func (d *Diagnostician) probeAll(ctx context.Context) (ServiceStatus, map[string]ServiceStatus) {
	auth := async.Async(ctx, d.authCheck, func(ctx context.Context, fn func(context.Context) error) (ServiceStatus, error) {
		return d.probe(ctx, fn, d.slowAuth), nil
	})
	deps := make([]*async.Future[ServiceStatus], len(d.deps))
	for i, c := range d.deps {
		deps[i] = async.Async(ctx, c, func(ctx context.Context, c health.Check) (ServiceStatus, error) {
			return d.probe(ctx, c.Fn, d.slowDep), nil
		})
	}

	authStatus, _ := auth.Await()
	depStatus := make(map[string]ServiceStatus, len(deps))
	for i, f := range deps {
		st, _ := f.Await()
		depStatus[d.deps[i].Name] = st
		if !st.Operational {
			d.log.WarnContext(ctx, "dependency probe failed",
				logger.Component("diagnostics"), slog.String("dependency", d.deps[i].Name),
				slog.String("error", st.Error))
		}
	}
	return authStatus, depStatus
}

func mask(v string, keep int) string {
	if v == "" {
		return ""
	}
	if len(v) <= keep {
		return strings.Repeat("*", len(v))
	}
	return v[:keep] + "..."
}

func (d *Diagnostician) clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	return clientip.GetIP(r)
}
