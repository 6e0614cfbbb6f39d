package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the backend URL or key is missing.
	ErrNotConfigured = errors.New("identity: backend not configured")
	// ErrDevProviderInProduction is returned when the development provider is
	// requested in a production environment.
	ErrDevProviderInProduction = errors.New("identity: development provider is not allowed in production")
	// ErrUnknownMode is returned for an unrecognized provider strategy.
	ErrUnknownMode = errors.New("identity: unknown provider mode")
)

// BackendError is an error reported by the identity backend.
type BackendError struct {
	Status  int
	Code    string
	Message string
}

// Error implements error.
func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity: %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of the backend response.
func (e *BackendError) StatusCode() int {
	return e.Status
}
