package auth

import (
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an authentication failure.
type Kind string

const (
	// InvalidCredentials is user-correctable and never retried.
	InvalidCredentials Kind = "invalid_credentials"
	// BackendUnavailable is transient; retried up to the bound.
	BackendUnavailable Kind = "backend_unavailable"
	// Timeout is transient; retried up to the bound.
	Timeout Kind = "timeout"
	// CookieBlocked means client storage rejected the session cookies.
	CookieBlocked Kind = "cookie_blocked"
	// AccountExists is returned by sign-up for a registered email.
	AccountExists Kind = "account_exists"
	// Unknown is the catch-all.
	Unknown Kind = "unknown"
)

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password. Please check your credentials and try again."
	MsgMissingCredentials = "Email and password are required."
	MsgMissingEmail       = "Email is required."
	MsgUnavailable        = "Authentication service is currently unavailable. Please try again later."
	MsgCookieBlocked      = "Your browser blocked the session cookies. Allow cookies for this site in your privacy or tracking protection settings and try again."
	MsgAccountExists      = "An account with this email already exists. Please try signing in instead."
	MsgExhausted          = "Authentication failed after multiple attempts"
	MsgUnexpected         = "An unexpected error occurred during authentication."
	MsgCancelled          = "Authentication was cancelled."
)

func timeoutMessage(elapsed time.Duration) string {
	return fmt.Sprintf("Authentication timed out after %s. Please try again.", elapsed.Round(time.Millisecond))
}

// Error is the typed result of a failed authentication operation.
// It is never mutated after it is returned.
type Error struct {
	Kind    Kind
	Message string
	// HTTPStatus is the backend response status, 0 when there was none.
	HTTPStatus int
	Attempts   int
	Elapsed    time.Duration
	Cause      error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials}
	ErrBackendUnavailable = &Error{Kind: BackendUnavailable}
	ErrTimeout            = &Error{Kind: Timeout}
	ErrCookieBlocked      = &Error{Kind: CookieBlocked}
	ErrAccountExists      = &Error{Kind: AccountExists}
	ErrUnknown            = &Error{Kind: Unknown}
)

// Error implements error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the kind is transient.
func (e *Error) Retryable() bool {
	return e.Kind == BackendUnavailable || e.Kind == Timeout
}

// StatusCode maps the kind to the HTTP status an API response should use.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case InvalidCredentials:
		return http.StatusUnauthorized
	case BackendUnavailable:
		return http.StatusServiceUnavailable
	case Timeout:
		return http.StatusGatewayTimeout
	case CookieBlocked:
		return http.StatusBadRequest
	case AccountExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) with(attempts int, elapsed time.Duration) *Error {
	cp := *e
	cp.Attempts = attempts
	cp.Elapsed = elapsed
	return &cp
}
