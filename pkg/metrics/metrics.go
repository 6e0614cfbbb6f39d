package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the Prometheus recorder.
type Config struct {
	// Namespace prefixes every metric name. Default "authgate".
	Namespace   string
	ConstLabels prometheus.Labels
	// Buckets are the histogram buckets for auth durations.
	// Default: prometheus.DefBuckets
	Buckets []float64
	// Registry defaults to a fresh prometheus.Registry.
	Registry *prometheus.Registry
}

// Option configures the recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the registry metrics are registered with and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) { c.Registry = registry }
}

// Recorder records authentication, guard and rate limit outcomes.
// It satisfies auth.Metrics and guard.Metrics.
type Recorder struct {
	registry *prometheus.Registry

	authAttempts   *prometheus.CounterVec
	authResults    *prometheus.CounterVec
	authDuration   *prometheus.HistogramVec
	authRetries    *prometheus.HistogramVec
	guardDecisions *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors.
func New(opts ...Option) *Recorder {
	cfg := Config{
		Namespace: "authgate",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(cfg.Registry)
	return &Recorder{
		registry: cfg.Registry,

		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "auth",
			Name:        "attempts_total",
			Help:        "Identity backend calls by operation and outcome",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op", "outcome"}),

		authResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "auth",
			Name:        "results_total",
			Help:        "Final authentication results by operation",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op", "result"}),

		authDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "auth",
			Name:        "duration_seconds",
			Help:        "Authentication operation duration including retries",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"op"}),

		authRetries: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "auth",
			Name:        "attempts_per_operation",
			Help:        "Backend attempts needed per authentication operation",
			ConstLabels: cfg.ConstLabels,
			Buckets:     []float64{1, 2, 3, 4, 5},
		}, []string{"op"}),

		guardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "guard",
			Name:        "decisions_total",
			Help:        "Route guard decisions by route class and action",
			ConstLabels: cfg.ConstLabels,
		}, []string{"class", "action"}),

		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "ratelimit",
			Name:        "rejected_total",
			Help:        "Requests rejected by the rate limiter",
			ConstLabels: cfg.ConstLabels,
		}, []string{"path"}),
	}
}

// AuthAttempt records one backend call.
func (r *Recorder) AuthAttempt(op, outcome string) {
	r.authAttempts.WithLabelValues(op, outcome).Inc()
}

// AuthResult records the final result of an operation.
func (r *Recorder) AuthResult(op, result string, attempts int, elapsed time.Duration) {
	r.authResults.WithLabelValues(op, result).Inc()
	r.authDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if attempts > 0 {
		r.authRetries.WithLabelValues(op).Observe(float64(attempts))
	}
}

// GuardDecision records a route guard decision.
func (r *Recorder) GuardDecision(class, action string) {
	r.guardDecisions.WithLabelValues(class, action).Inc()
}

// RateLimited records a rejected request.
func (r *Recorder) RateLimited(path string) {
	r.rateLimited.WithLabelValues(path).Inc()
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
