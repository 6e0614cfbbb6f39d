package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/session"
)

const testSecret = "test-secret"

var testUser = session.User{ID: "u-1", Email: "test@example.com", Role: "authenticated"}

type fakeProvider struct {
	mu       sync.Mutex
	refresh  func(rt string) (*session.Grant, error)
	exchange func(code, verifier string) (*session.Grant, error)
	signOut  error

	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	signOutCalls  atomic.Int32
}

func (p *fakeProvider) SignInWithPassword(context.Context, string, string) (*session.Grant, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) RefreshSession(_ context.Context, rt string) (*session.Grant, error) {
	p.refreshCalls.Add(1)
	p.mu.Lock()
	fn := p.refresh
	p.mu.Unlock()
	if fn == nil {
		return nil, errors.New("refresh not configured")
	}
	return fn(rt)
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*session.Grant, error) {
	p.exchangeCalls.Add(1)
	if p.exchange == nil {
		return nil, errors.New("exchange not configured")
	}
	return p.exchange(code, verifier)
}

func (p *fakeProvider) SignOut(context.Context, string) error {
	p.signOutCalls.Add(1)
	return p.signOut
}

func (p *fakeProvider) SignUp(context.Context, string, string) (*session.Grant, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) ResetPassword(context.Context, string, string) error { return nil }

func (p *fakeProvider) Health(context.Context) error { return nil }

func mintGrant(t *testing.T, refresh string, ttl time.Duration) *session.Grant {
	t.Helper()
	exp := time.Now().Add(ttl).Truncate(time.Second)
	token, err := session.SignToken(testSecret, testUser, exp)
	require.NoError(t, err)
	return &session.Grant{AccessToken: token, RefreshToken: refresh, ExpiresAt: exp, User: testUser}
}

func newDocStore(t *testing.T, p session.Provider, opts ...session.Option) (*session.Store, *cookie.DocumentJar, *cookie.MemoryDocument) {
	t.Helper()
	doc := cookie.NewMemoryDocument()
	jar := cookie.NewDocumentJar(cookie.New(), doc, "localhost")
	opts = append([]session.Option{session.WithConfig(session.Config{JWTSecret: testSecret})}, opts...)
	return session.NewStore(p, jar, opts...), jar, doc
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	t.Run("no cookies is absent without error", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newDocStore(t, &fakeProvider{})

		sess, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("reads persisted session", func(t *testing.T) {
		t.Parallel()
		store, jar, _ := newDocStore(t, &fakeProvider{})
		grant := mintGrant(t, "rt-1", time.Hour)
		jar.Set("sb-access-token", grant.AccessToken)
		jar.Set("sb-refresh-token", "rt-1")

		sess, err := store.Get(context.Background())
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, testUser, sess.User)
		assert.Equal(t, "rt-1", sess.RefreshToken)
		assert.True(t, sess.Valid(time.Now()))
	})

	t.Run("expired session is absent", func(t *testing.T) {
		t.Parallel()
		store, jar, _ := newDocStore(t, &fakeProvider{})
		grant := mintGrant(t, "rt-1", time.Hour)
		jar.Set("sb-access-token", grant.AccessToken)

		later := func() time.Time { return time.Now().Add(2 * time.Hour) }
		expiredStore := session.NewStore(&fakeProvider{}, jar,
			session.WithConfig(session.Config{JWTSecret: testSecret}), session.WithClock(later))

		sess, err := expiredStore.Get(context.Background())
		require.NoError(t, err)
		assert.Nil(t, sess)

		sess, err = store.Get(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, sess)
	})

	t.Run("malformed token is an error", func(t *testing.T) {
		t.Parallel()
		store, jar, _ := newDocStore(t, &fakeProvider{})
		jar.Set("sb-access-token", "not-a-jwt")

		sess, err := store.Get(context.Background())
		require.ErrorIs(t, err, session.ErrMalformedToken)
		assert.Nil(t, sess)
	})

	t.Run("wrong signature is an error", func(t *testing.T) {
		t.Parallel()
		store, jar, _ := newDocStore(t, &fakeProvider{})
		token, err := session.SignToken("other-secret", testUser, time.Now().Add(time.Hour))
		require.NoError(t, err)
		jar.Set("sb-access-token", token)

		_, err = store.Get(context.Background())
		require.ErrorIs(t, err, session.ErrMalformedToken)
	})

	t.Run("metadata fills missing claims", func(t *testing.T) {
		t.Parallel()
		bare := session.User{ID: testUser.ID}
		token, err := session.SignToken(testSecret, bare, time.Now().Add(time.Hour))
		require.NoError(t, err)

		writer, jar, _ := newDocStore(t, &fakeProvider{})
		require.NoError(t, writer.Persist(&session.Session{
			AccessToken: token,
			ExpiresAt:   time.Now().Add(time.Hour),
			User:        testUser,
		}))

		reader := session.NewStore(&fakeProvider{}, jar, session.WithConfig(session.Config{JWTSecret: testSecret}))
		sess, err := reader.Get(context.Background())
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, testUser.Email, sess.User.Email)
		assert.Equal(t, testUser.Role, sess.User.Role)
	})
}

func TestStore_Establish(t *testing.T) {
	t.Parallel()

	t.Run("writes cookies and becomes current", func(t *testing.T) {
		t.Parallel()
		store, jar, _ := newDocStore(t, &fakeProvider{})
		grant := mintGrant(t, "rt-1", time.Hour)

		sess, err := store.Establish(grant)
		require.NoError(t, err)
		assert.Equal(t, testUser, sess.User)

		v, ok := jar.Get("sb-access-token")
		require.True(t, ok)
		assert.Equal(t, grant.AccessToken, v)
		v, ok = jar.Get("sb-refresh-token")
		require.True(t, ok)
		assert.Equal(t, "rt-1", v)
		_, ok = jar.Get("supabase-auth-token")
		assert.True(t, ok)

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, grant.AccessToken, got.AccessToken)
	})

	t.Run("fills user and expiry from token", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newDocStore(t, &fakeProvider{})
		grant := mintGrant(t, "", time.Hour)

		sess, err := store.Establish(&session.Grant{AccessToken: grant.AccessToken})
		require.NoError(t, err)
		assert.Equal(t, testUser.ID, sess.User.ID)
		assert.False(t, sess.ExpiresAt.IsZero())
	})

	t.Run("grant without token is malformed", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newDocStore(t, &fakeProvider{})

		_, err := store.Establish(&session.Grant{User: testUser})
		require.ErrorIs(t, err, session.ErrMalformedGrant)
	})

	t.Run("blocked storage", func(t *testing.T) {
		t.Parallel()
		store, _, doc := newDocStore(t, &fakeProvider{})
		doc.Disable()

		_, err := store.Establish(mintGrant(t, "rt-1", time.Hour))
		require.ErrorIs(t, err, session.ErrCookieBlocked)
	})
}

func TestStore_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("rotates tokens", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		store, jar, _ := newDocStore(t, p)
		_, err := store.Establish(mintGrant(t, "rt-1", time.Minute))
		require.NoError(t, err)

		next := mintGrant(t, "rt-2", time.Hour)
		p.refresh = func(rt string) (*session.Grant, error) {
			assert.Equal(t, "rt-1", rt)
			return next, nil
		}

		sess, err := store.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, next.AccessToken, sess.AccessToken)

		v, _ := jar.Get("sb-refresh-token")
		assert.Equal(t, "rt-2", v)
	})

	t.Run("same refresh token replays first result", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		cache := session.NewMemoryExchangeCache()
		factory := session.NewFactory(p,
			session.WithConfig(session.Config{JWTSecret: testSecret}),
			session.WithExchangeCache(cache))

		seed := mintGrant(t, "rt-1", time.Minute)
		next := mintGrant(t, "rt-2", time.Hour)
		p.refresh = func(string) (*session.Grant, error) { return next, nil }

		var results []string
		for range 2 {
			jar := cookie.NewDocumentJar(cookie.New(), cookie.NewMemoryDocument(), "localhost")
			jar.Set("sb-access-token", seed.AccessToken)
			jar.Set("sb-refresh-token", "rt-1")

			sess, err := factory.Store(jar).Refresh(context.Background())
			require.NoError(t, err)
			results = append(results, sess.AccessToken)
		}

		assert.Equal(t, int32(1), p.refreshCalls.Load())
		assert.Equal(t, results[0], results[1])
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("no refresh token", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		store, _, _ := newDocStore(t, p)

		_, err := store.Refresh(context.Background())
		require.ErrorIs(t, err, session.ErrNoRefreshToken)
		assert.Zero(t, p.refreshCalls.Load())
	})

	t.Run("backend failure is not cached", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		store, jar, _ := newDocStore(t, p)
		jar.Set("sb-refresh-token", "rt-1")

		boom := errors.New("boom")
		p.refresh = func(string) (*session.Grant, error) { return nil, boom }

		_, err := store.Refresh(context.Background())
		require.ErrorIs(t, err, boom)
		_, err = store.Refresh(context.Background())
		require.ErrorIs(t, err, boom)
		assert.Equal(t, int32(2), p.refreshCalls.Load())
	})

	t.Run("blocked storage skips backend", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		store, jar, doc := newDocStore(t, p)
		jar.Set("sb-refresh-token", "rt-1")
		doc.Disable()
		jar.Set("x", "y")

		_, err := store.Refresh(context.Background())
		require.ErrorIs(t, err, session.ErrCookieBlocked)
		assert.Zero(t, p.refreshCalls.Load())
	})
}

func TestStore_ExchangeCode(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	grant := mintGrant(t, "rt-1", time.Hour)
	p.exchange = func(code, verifier string) (*session.Grant, error) {
		assert.Equal(t, "code-1", code)
		assert.Equal(t, "verifier-1", verifier)
		return grant, nil
	}
	factory := session.NewFactory(p, session.WithConfig(session.Config{JWTSecret: testSecret}))

	for range 2 {
		jar := cookie.NewDocumentJar(cookie.New(), cookie.NewMemoryDocument(), "localhost")
		sess, err := factory.Store(jar).ExchangeCode(context.Background(), "code-1", "verifier-1")
		require.NoError(t, err)
		assert.Equal(t, grant.AccessToken, sess.AccessToken)
	}
	assert.Equal(t, int32(1), p.exchangeCalls.Load())
}

func TestStore_SignOut(t *testing.T) {
	t.Parallel()

	t.Run("clears cookies", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		store, jar, _ := newDocStore(t, p)
		_, err := store.Establish(mintGrant(t, "rt-1", time.Hour))
		require.NoError(t, err)

		require.NoError(t, store.SignOut(context.Background()))
		assert.Equal(t, int32(1), p.signOutCalls.Load())
		assert.Empty(t, jar.All())

		sess, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("backend error still clears", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		p := &fakeProvider{signOut: boom}
		store, jar, _ := newDocStore(t, p)
		_, err := store.Establish(mintGrant(t, "rt-1", time.Hour))
		require.NoError(t, err)

		require.ErrorIs(t, store.SignOut(context.Background()), boom)
		assert.Empty(t, jar.All())
	})

	t.Run("no session skips backend", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		store, _, _ := newDocStore(t, p)

		require.NoError(t, store.SignOut(context.Background()))
		assert.Zero(t, p.signOutCalls.Load())
	})
}

func TestStore_ClearStale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cookies map[string]string
		want    bool
	}{
		{name: "empty", cookies: nil, want: false},
		{name: "malformed access token", cookies: map[string]string{"sb-access-token": "garbage"}, want: true},
		{name: "orphan refresh token", cookies: map[string]string{"sb-refresh-token": "rt"}, want: true},
		{name: "orphan metadata", cookies: map[string]string{"supabase-auth-token": "eyJ9"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, jar, _ := newDocStore(t, &fakeProvider{})
			for k, v := range tt.cookies {
				jar.Set(k, v)
			}

			assert.Equal(t, tt.want, store.ClearStale(context.Background()))
			if tt.want {
				assert.Empty(t, jar.All())
			}
		})
	}

	t.Run("valid session is kept", func(t *testing.T) {
		t.Parallel()
		store, jar, _ := newDocStore(t, &fakeProvider{})
		_, err := store.Establish(mintGrant(t, "rt-1", time.Hour))
		require.NoError(t, err)

		assert.False(t, store.ClearStale(context.Background()))
		assert.Len(t, jar.All(), 3)
	})
}
