// Package authgate assembles the session gateway: identity provider,
// session stores, route guard, credential endpoints, OAuth callback,
// diagnostics, health probes and metrics, served by one router.
//
// Routes:
//
//	GET  /health/live, /health/ready    probes
//	GET  /metrics                       Prometheus exposition
//	POST /api/auth/signin|signup|reset  credential operations, rate limited
//	POST /api/auth/signout
//	GET  /api/auth/session|status|diagnose
//	POST /api/auth/cookie-test
//	GET  /auth/callback                 OAuth code exchange
//	POST /landing/signin                HTML form sign-in
//
// Pages under /, /dashboard and /landing pass through the guard and are
// rendered by the handler given to WithPages.
//
// Without identity backend credentials the server still starts: every
// guarded page except sign-in redirects to /landing/signin?error=config.
package authgate
