// Package identity provides session.Provider implementations.
//
// Client talks to a GoTrue-compatible backend over HTTP, sending the anon key
// as the apikey header and tracing each call with OpenTelemetry. Error
// responses become *BackendError, which exposes StatusCode so callers can
// classify them; transport failures wrap session.ErrBackendUnreachable.
//
// DevProvider is an in-process strategy for local development. It knows a
// mock account (test@example.com / password123) and the bypass account, and
// it cannot be constructed in production.
//
//	provider, secret, err := identity.New(cfg, appEnv, log)
package identity
