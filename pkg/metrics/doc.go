// Package metrics exposes authentication, route guard and rate limit
// counters to Prometheus.
//
//	rec := metrics.New()
//	auth.NewAuthenticator(store, auth.WithMetrics(rec))
//	guard.New(guard.WithMetrics(rec))
//	r.Mount("/metrics", rec.Handler())
package metrics
