package session

import "errors"

var (
	// ErrNoSession is returned when an operation needs a session and there is none.
	ErrNoSession = errors.New("session: no session")
	// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
	ErrNoRefreshToken = errors.New("session: no refresh token")
	// ErrCookieBlocked is returned when cookie storage rejected a write.
	ErrCookieBlocked = errors.New("session: cookie storage blocked")
	// ErrMalformedToken is returned when an access token cannot be decoded.
	ErrMalformedToken = errors.New("session: malformed access token")
	// ErrMalformedGrant is returned when the backend response lacks required fields.
	ErrMalformedGrant = errors.New("session: malformed grant")
	// ErrUnverifiedTokens is returned when production would accept access
	// tokens without checking their signature.
	ErrUnverifiedTokens = errors.New("session: access token signatures are not verified, set SESSION_JWT_SECRET")
	// ErrBackendUnreachable wraps transport failures talking to the identity backend.
	ErrBackendUnreachable = errors.New("session: identity backend unreachable")
)
