package session

import "context"

// Provider is the identity backend. Implementations are injected into the
// Store and the authenticator; there is no package-level client.
//
// Errors that carry an HTTP status implement StatusCode() int. Transport
// failures wrap ErrBackendUnreachable.
type Provider interface {
	// SignInWithPassword performs the password grant.
	SignInWithPassword(ctx context.Context, email, password string) (*Grant, error)
	// RefreshSession exchanges a refresh token for a new grant.
	RefreshSession(ctx context.Context, refreshToken string) (*Grant, error)
	// ExchangeCode completes an OAuth/PKCE handoff.
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Grant, error)
	// SignOut revokes the session behind accessToken.
	SignOut(ctx context.Context, accessToken string) error
	// SignUp registers a new user. The grant has no tokens when email
	// confirmation is pending.
	SignUp(ctx context.Context, email, password string) (*Grant, error)
	// ResetPassword sends a recovery email that links back to redirectTo.
	ResetPassword(ctx context.Context, email, redirectTo string) error
	// Health checks backend reachability.
	Health(ctx context.Context) error
}
