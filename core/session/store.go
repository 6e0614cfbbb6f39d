package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/logger"
)

type settings struct {
	cfg        Config
	decoder    *TokenDecoder
	cache      ExchangeCache
	cookieOpts []cookie.Option
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Factory or a Store.
type Option func(*settings)

// WithConfig sets cookie names and cache settings.
func WithConfig(cfg Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithTokenDecoder overrides the decoder built from Config.JWTSecret.
func WithTokenDecoder(d *TokenDecoder) Option {
	return func(s *settings) { s.decoder = d }
}

// WithExchangeCache sets the cache shared by every store of a factory.
func WithExchangeCache(c ExchangeCache) Option {
	return func(s *settings) { s.cache = c }
}

// WithCookieOptions sets attributes applied to every session cookie write.
func WithCookieOptions(opts ...cookie.Option) Option {
	return func(s *settings) { s.cookieOpts = append(s.cookieOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// Factory holds the dependencies shared across execution contexts and
// builds one Store per context.
type Factory struct {
	provider Provider
	s        settings
}

// NewFactory creates a Factory for provider.
func NewFactory(provider Provider, opts ...Option) *Factory {
	s := settings{
		cfg: DefaultConfig(),
		log: logger.Discard(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.cfg = s.cfg.withDefaults()
	if s.decoder == nil {
		s.decoder = NewTokenDecoder(s.cfg.JWTSecret)
	}
	if s.cache == nil {
		s.cache = NewMemoryExchangeCache()
	}
	return &Factory{provider: provider, s: s}
}

// Store builds a Store over bridge.
func (f *Factory) Store(bridge cookie.Bridge) *Store {
	return &Store{provider: f.provider, bridge: bridge, s: f.s}
}

// Config returns the effective configuration.
func (f *Factory) Config() Config {
	return f.s.cfg
}

// Provider returns the identity backend.
func (f *Factory) Provider() Provider {
	return f.provider
}

// Store is the session state of one execution context. It reads and writes
// cookies through its Bridge and caches the session it has read or written,
// so it is the single authority for the session within that context.
type Store struct {
	provider Provider
	bridge   cookie.Bridge
	s        settings

	mu      sync.Mutex
	loaded  bool
	current *Session
	readErr error
}

// NewStore is shorthand for NewFactory(provider, opts...).Store(bridge).
func NewStore(provider Provider, bridge cookie.Bridge, opts ...Option) *Store {
	return NewFactory(provider, opts...).Store(bridge)
}

// Bridge returns the cookie bridge backing the store.
func (s *Store) Bridge() cookie.Bridge {
	return s.bridge
}

// Get returns the current session without side effects. It returns
// (nil, nil) when there is no session or it has expired, and an error when
// the stored token cannot be decoded. The first read is cached.
func (s *Store) Get(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.current, s.readErr = s.read(ctx)
		s.loaded = true
	}
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.current.Expired(s.s.now()) {
		return nil, nil
	}
	return s.current.clone(), nil
}

func (s *Store) read(ctx context.Context) (*Session, error) {
	access, ok := s.bridge.Get(s.s.cfg.AccessCookie)
	if !ok || access == "" {
		return nil, nil
	}

	claims, err := s.s.decoder.Decode(access)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		AccessToken: access,
		ExpiresAt:   claims.ExpiresAt.Time,
		User: User{
			ID:    claims.Subject,
			Email: claims.Email,
			Role:  claims.Role,
		},
	}
	sess.RefreshToken, _ = s.bridge.Get(s.s.cfg.RefreshCookie)

	if raw, ok := s.bridge.Get(s.s.cfg.ProviderCookie); ok {
		if meta, err := decodeMetadata(raw); err == nil && meta.User.ID == sess.User.ID {
			if sess.User.Email == "" {
				sess.User.Email = meta.User.Email
			}
			if sess.User.Role == "" {
				sess.User.Role = meta.User.Role
			}
		}
	}

	if sess.Expired(s.s.now()) {
		s.s.log.DebugContext(ctx, "stored session expired",
			logger.Component("session"), logger.UserID(sess.User.ID))
	}
	return sess, nil
}

// Establish converts a backend grant into a session and persists it.
func (s *Store) Establish(grant *Grant) (*Session, error) {
	sess, err := s.fromGrant(grant)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(sess); err != nil {
		return sess, err
	}
	return sess.clone(), nil
}

// Persist writes sess to cookies and makes it the current session.
// It returns ErrCookieBlocked when the bridge rejected a write.
func (s *Store) Persist(sess *Session) error {
	if sess == nil || sess.AccessToken == "" {
		return ErrNoSession
	}

	meta, err := encodeMetadata(sess)
	if err != nil {
		return fmt.Errorf("session: encode metadata: %w", err)
	}

	opts := s.s.cookieOpts
	s.bridge.Set(s.s.cfg.AccessCookie, sess.AccessToken, opts...)
	if sess.RefreshToken != "" {
		s.bridge.Set(s.s.cfg.RefreshCookie, sess.RefreshToken, opts...)
	}
	s.bridge.Set(s.s.cfg.ProviderCookie, meta, opts...)

	if s.bridge.Blocked() {
		return ErrCookieBlocked
	}

	s.mu.Lock()
	s.current = sess.clone()
	s.readErr = nil
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Refresh exchanges the refresh token for a new session and rewrites the
// cookies. Repeated refreshes with the same token within the exchange cache
// TTL replay the first result.
func (s *Store) Refresh(ctx context.Context) (*Session, error) {
	if s.bridge.Blocked() {
		return nil, ErrCookieBlocked
	}

	token := s.refreshToken()
	if token == "" {
		return nil, ErrNoRefreshToken
	}

	grant, err := s.exchange(ctx, "refresh", token, func(ctx context.Context) (*Grant, error) {
		return s.provider.RefreshSession(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return s.Establish(grant)
}

// ExchangeCode completes an OAuth/PKCE handoff and persists the session.
func (s *Store) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Session, error) {
	grant, err := s.exchange(ctx, "code", authCode, func(ctx context.Context) (*Grant, error) {
		return s.provider.ExchangeCode(ctx, authCode, codeVerifier)
	})
	if err != nil {
		return nil, err
	}
	return s.Establish(grant)
}

// SignOut revokes the session at the backend and always clears cookies.
// The backend error, if any, is returned after the local state is gone.
func (s *Store) SignOut(ctx context.Context) error {
	access := s.accessToken()

	var err error
	if access != "" {
		if err = s.provider.SignOut(ctx, access); err != nil {
			s.s.log.WarnContext(ctx, "backend sign-out failed",
				logger.Component("session"), logger.Error(err))
		}
	}
	s.Clear()
	return err
}

// Clear removes every session cookie and forgets the current session.
func (s *Store) Clear() {
	for _, name := range s.s.cfg.CookieNames() {
		s.bridge.Remove(name, s.s.cookieOpts...)
	}

	s.mu.Lock()
	s.current = nil
	s.readErr = nil
	s.loaded = true
	s.mu.Unlock()
}

// ClearStale removes leftovers of a broken or abandoned session: an
// undecodable access token, or refresh/provider cookies without an access
// token. It reports whether anything was removed.
func (s *Store) ClearStale(ctx context.Context) bool {
	_, err := s.Get(ctx)

	_, hasAccess := s.bridge.Get(s.s.cfg.AccessCookie)
	_, hasRefresh := s.bridge.Get(s.s.cfg.RefreshCookie)
	raw, hasMeta := s.bridge.Get(s.s.cfg.ProviderCookie)

	stale := err != nil
	if !hasAccess && (hasRefresh || hasMeta) {
		stale = true
	}
	if hasMeta && !stale {
		_, derr := decodeMetadata(raw)
		stale = derr != nil
	}
	if !stale {
		return false
	}

	s.s.log.InfoContext(ctx, "clearing stale session cookies",
		logger.Component("session"), logger.Error(err))
	s.Clear()
	return true
}

func (s *Store) refreshToken() string {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil && cur.RefreshToken != "" {
		return cur.RefreshToken
	}
	token, _ := s.bridge.Get(s.s.cfg.RefreshCookie)
	return token
}

func (s *Store) accessToken() string {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil && cur.AccessToken != "" {
		return cur.AccessToken
	}
	token, _ := s.bridge.Get(s.s.cfg.AccessCookie)
	return token
}

func (s *Store) exchange(ctx context.Context, kind, secret string, fn func(context.Context) (*Grant, error)) (*Grant, error) {
	key := exchangeKey(kind, secret)

	cached, ok, err := s.s.cache.Get(ctx, key)
	if err != nil {
		s.s.log.WarnContext(ctx, "exchange cache read failed",
			logger.Component("session"), logger.Action(kind), logger.Error(err))
	}
	if ok {
		s.s.log.DebugContext(ctx, "replaying cached exchange",
			logger.Component("session"), logger.Action(kind))
		return cached, nil
	}

	grant, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if !grant.HasSession() {
		return nil, fmt.Errorf("%w: %s returned no access token", ErrMalformedGrant, kind)
	}

	if err := s.s.cache.Set(ctx, key, grant, s.s.cfg.ExchangeCacheTTL); err != nil {
		s.s.log.WarnContext(ctx, "exchange cache write failed",
			logger.Component("session"), logger.Action(kind), logger.Error(err))
	}
	return grant, nil
}

func (s *Store) fromGrant(g *Grant) (*Session, error) {
	if !g.HasSession() {
		return nil, fmt.Errorf("%w: missing access token", ErrMalformedGrant)
	}

	sess := &Session{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    g.ExpiresAt,
		User:         g.User,
	}

	if sess.ExpiresAt.IsZero() || sess.User.ID == "" {
		claims, err := s.s.decoder.Decode(g.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedGrant, err)
		}
		if sess.ExpiresAt.IsZero() {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
		if sess.User.ID == "" {
			sess.User = User{ID: claims.Subject, Email: claims.Email, Role: claims.Role}
		}
	}
	return sess, nil
}
