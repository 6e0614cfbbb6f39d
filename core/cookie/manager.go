package cookie

import (
	"errors"
	"net/http"
	"time"
)

// MaxCookieSize is the maximum serialized size for a cookie (4KB).
const MaxCookieSize = 4096

// Manager builds cookies from shared defaults and enforces the size limit.
// It is safe for concurrent use; jars are built per execution context on top of it.
type Manager struct {
	defaults Options
	maxSize  int
}

// ManagerOption configures the Manager itself rather than individual cookies.
type ManagerOption func(*Manager)

// WithMaxSize sets the maximum cookie size.
func WithMaxSize(size int) ManagerOption {
	return func(m *Manager) {
		if size > 0 {
			m.maxSize = size
		}
	}
}

// New creates a Manager. Defaults are path "/", SameSite=Lax.
func New(opts ...Option) *Manager {
	defaults := Options{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		defaults: applyOptions(defaults, opts),
		maxSize:  MaxCookieSize,
	}
}

// NewWithOptions creates a Manager with additional manager options.
func NewWithOptions(cookieOpts []Option, managerOpts ...ManagerOption) *Manager {
	m := New(cookieOpts...)
	for _, opt := range managerOpts {
		opt(m)
	}
	return m
}

// Defaults returns a copy of the default cookie attributes.
func (m *Manager) Defaults() Options {
	return m.defaults
}

// Build returns the cookie for name/value with defaults and opts applied.
// It fails when the serialized cookie exceeds the size limit.
func (m *Manager) Build(name, value string, opts ...Option) (*http.Cookie, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	options := applyOptions(m.defaults, opts)
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	}

	if size := len(c.String()); size > m.maxSize {
		return nil, ErrCookieTooLarge{Name: name, Size: size, Max: m.maxSize}
	}
	return c, nil
}

// Expired returns a cookie that instructs the client to drop name.
func (m *Manager) Expired(name string, opts ...Option) *http.Cookie {
	options := applyOptions(m.defaults, opts)
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	}
}

// Set writes a Set-Cookie header.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	c, err := m.Build(name, value, opts...)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

// Get reads a cookie value from the request.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Delete writes an expiring Set-Cookie header for name.
func (m *Manager) Delete(w http.ResponseWriter, name string, opts ...Option) {
	http.SetCookie(w, m.Expired(name, opts...))
}
