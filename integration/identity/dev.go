package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/ideatrek/authgate/core/config"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
)

// Built-in development accounts.
var (
	MockUser = session.User{
		ID:    "6f1c2a53-3d7e-4d0b-9b65-5b0f5d3b8e11",
		Email: "test@example.com",
		Role:  "authenticated",
	}
	BypassUser = session.User{
		ID:    "a12fdb05-d08e-4fb4-b0fc-a29d123e08b4",
		Email: "data@ideatrek.io",
		Role:  "authenticated",
	}
)

const (
	mockPassword   = "password123"
	bypassPassword = "bypass"
)

type devAccount struct {
	user session.User
	hash []byte
}

func newDevAccount(user session.User, password string) (devAccount, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return devAccount{}, err
	}
	return devAccount{user: user, hash: hash}, nil
}

func (a devAccount) matches(password string) bool {
	return a.hash != nil && bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// emailKey folds case so lookups match the backend's case-insensitive emails.
func emailKey(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// DevProvider is an in-process session.Provider for local development and
// tests. It mints HS256 tokens signed with its secret, so a session.Store
// configured with the same secret verifies them.
type DevProvider struct {
	secret   string
	ttl      time.Duration
	log      *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
	accounts map[string]devAccount
	refresh  map[string]string
	codes    map[string]string
}

var _ session.Provider = (*DevProvider)(nil)

// DevOption configures a DevProvider.
type DevOption func(*DevProvider)

// WithDevUser registers an additional account.
func WithDevUser(user session.User, password string) DevOption {
	return func(p *DevProvider) {
		acc, err := newDevAccount(user, password)
		if err != nil {
			p.log.Warn("dev account skipped", logger.Component("identity"), logger.Error(err))
			return
		}
		p.accounts[emailKey(user.Email)] = acc
	}
}

// WithTokenTTL sets the lifetime of minted access tokens.
func WithTokenTTL(ttl time.Duration) DevOption {
	return func(p *DevProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithDevLogger sets the logger.
func WithDevLogger(l *slog.Logger) DevOption {
	return func(p *DevProvider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewDevProvider creates a development provider. It refuses to run in a
// production environment.
func NewDevProvider(env, secret string, opts ...DevOption) (*DevProvider, error) {
	if config.IsProduction(env) {
		return nil, ErrDevProviderInProduction
	}
	p := &DevProvider{
		secret: secret,
		ttl:    time.Hour,
		log:    logger.Discard(),
		now:    time.Now,
		accounts: make(map[string]devAccount),
		refresh:  make(map[string]string),
		codes:    make(map[string]string),
	}
	for user, password := range map[session.User]string{MockUser: mockPassword, BypassUser: bypassPassword} {
		acc, err := newDevAccount(user, password)
		if err != nil {
			return nil, err
		}
		p.accounts[emailKey(user.Email)] = acc
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Secret returns the signing secret for token verification.
func (p *DevProvider) Secret() string {
	return p.secret
}

// SignInWithPassword implements session.Provider.
func (p *DevProvider) SignInWithPassword(_ context.Context, email, password string) (*session.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[emailKey(email)]
	if !ok || !acc.matches(password) {
		return nil, &BackendError{Status: http.StatusBadRequest, Code: "invalid_grant", Message: "Invalid login credentials"}
	}
	p.log.Debug("dev provider sign-in", logger.Component("identity"), logger.UserID(acc.user.ID))
	return p.mint(acc.user)
}

// RefreshSession implements session.Provider. Refresh tokens are single use.
func (p *DevProvider) RefreshSession(_ context.Context, refreshToken string) (*session.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.refresh[refreshToken]
	if !ok {
		return nil, &BackendError{Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found"}
	}
	delete(p.refresh, refreshToken)
	return p.mint(p.accounts[email].user)
}

// IssueCode returns a one-time authorization code for email, standing in for
// an OAuth provider redirect.
func (p *DevProvider) IssueCode(email string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email = emailKey(email)
	if _, ok := p.accounts[email]; !ok {
		return "", false
	}
	code := uuid.NewString()
	p.codes[code] = email
	return code, true
}

// ExchangeCode implements session.Provider. The verifier is not checked.
func (p *DevProvider) ExchangeCode(_ context.Context, authCode, _ string) (*session.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.codes[authCode]
	if !ok {
		return nil, &BackendError{Status: http.StatusBadRequest, Code: "bad_code_verifier", Message: "invalid flow state, no valid flow state found"}
	}
	delete(p.codes, authCode)
	return p.mint(p.accounts[email].user)
}

// SignOut implements session.Provider. It revokes every refresh token of the
// token's subject.
func (p *DevProvider) SignOut(_ context.Context, accessToken string) error {
	claims, err := session.NewTokenDecoder(p.secret).Decode(accessToken)
	if err != nil {
		return &BackendError{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for rt, email := range p.refresh {
		if p.accounts[email].user.ID == claims.Subject {
			delete(p.refresh, rt)
		}
	}
	return nil
}

// SignUp implements session.Provider. Accounts are confirmed immediately.
func (p *DevProvider) SignUp(_ context.Context, email, password string) (*session.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := emailKey(email)
	if _, ok := p.accounts[key]; ok {
		return nil, &BackendError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}
	user := session.User{ID: uuid.NewString(), Email: email, Role: "authenticated"}
	acc, err := newDevAccount(user, password)
	if err != nil {
		return nil, &BackendError{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: err.Error()}
	}
	p.accounts[key] = acc
	return p.mint(user)
}

// ResetPassword implements session.Provider. It only logs the request.
func (p *DevProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	p.log.InfoContext(ctx, "dev provider password reset",
		logger.Component("identity"), slog.String("email", email), slog.String("redirect_to", redirectTo))
	return nil
}

// Health implements session.Provider.
func (p *DevProvider) Health(context.Context) error {
	return nil
}

func (p *DevProvider) mint(user session.User) (*session.Grant, error) {
	exp := p.now().Add(p.ttl).Truncate(time.Second)
	token, err := session.SignToken(p.secret, user, exp)
	if err != nil {
		return nil, err
	}
	rt := uuid.NewString()
	p.refresh[rt] = emailKey(user.Email)
	return &session.Grant{AccessToken: token, RefreshToken: rt, ExpiresAt: exp, User: user}, nil
}
