package auth

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/ideatrek/authgate/core/session"
)

var (
	credentialPatterns = []string{
		"invalid login credentials",
		"invalid_grant",
		"invalid_credentials",
	}
	unavailablePatterns = []string{
		"database error granting user",
		"service unavailable",
		"authentication service",
	}
	existsPatterns = []string{
		"user already registered",
		"user_already_exists",
	}
)

type statusCoder interface {
	StatusCode() int
}

// classify turns a provider error into an *Error and reports whether the
// attempt may be retried. timedOut marks an attempt that lost the race
// against the per-attempt timeout.
func classify(err error, timedOut bool) (*Error, bool) {
	if timedOut {
		return &Error{Kind: Timeout, Cause: err}, true
	}

	status := 0
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	if status >= 500 {
		return &Error{Kind: BackendUnavailable, Message: MsgUnavailable, HTTPStatus: status, Cause: err}, true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, credentialPatterns):
		return &Error{Kind: InvalidCredentials, Message: MsgInvalidCredentials, HTTPStatus: status, Cause: err}, false
	case containsAny(msg, existsPatterns):
		return &Error{Kind: AccountExists, Message: MsgAccountExists, HTTPStatus: status, Cause: err}, false
	case containsAny(msg, unavailablePatterns):
		return &Error{Kind: BackendUnavailable, Message: MsgUnavailable, HTTPStatus: status, Cause: err}, false
	case errors.Is(err, session.ErrMalformedGrant), errors.Is(err, session.ErrMalformedToken):
		return &Error{Kind: Unknown, Message: MsgUnexpected, HTTPStatus: status, Cause: err}, false
	case errors.Is(err, session.ErrCookieBlocked):
		return &Error{Kind: CookieBlocked, Message: MsgCookieBlocked, Cause: err}, false
	case status == 0 && isTransport(err):
		return &Error{Kind: BackendUnavailable, Message: MsgUnavailable, Cause: err}, true
	}
	return &Error{Kind: Unknown, Message: MsgUnexpected, HTTPStatus: status, Cause: err}, false
}

func isTransport(err error) bool {
	if errors.Is(err, session.ErrBackendUnreachable) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
