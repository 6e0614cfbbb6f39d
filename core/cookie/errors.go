package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrCookieNotFound indicates the requested cookie is absent.
	ErrCookieNotFound = errors.New("cookie not found in request")

	// ErrStorageUnavailable indicates the cookie storage rejected access,
	// typically because cookies are disabled.
	ErrStorageUnavailable = errors.New("cookie storage unavailable")

	// ErrReadOnly indicates a write was attempted in a context that can only read.
	ErrReadOnly = errors.New("cookie storage is read-only in this context")

	// ErrInvalidName indicates an empty or malformed cookie name.
	ErrInvalidName = errors.New("invalid cookie name")
)

// ErrCookieTooLarge indicates the cookie exceeds the maximum allowed size.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

// Error implements the error interface.
func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
