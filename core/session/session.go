package session

import "time"

// User is an immutable snapshot of the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session is the authenticated state carried by cookies.
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the session is unusable at now.
// A zero ExpiresAt counts as expired.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || s.ExpiresAt.IsZero() || !now.Before(s.ExpiresAt)
}

// Valid reports whether the session carries an access token and is not expired.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && !s.Expired(now)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Grant is a token response from the identity backend.
// A Grant without an AccessToken describes a user whose session is not
// established yet (sign-up awaiting email confirmation).
type Grant struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// HasSession reports whether the grant carries usable tokens.
func (g *Grant) HasSession() bool {
	return g != nil && g.AccessToken != ""
}
