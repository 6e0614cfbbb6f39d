package identity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/integration/identity"
)

func TestNewDevProvider_Production(t *testing.T) {
	t.Parallel()

	_, err := identity.NewDevProvider("production", "s")
	require.ErrorIs(t, err, identity.ErrDevProviderInProduction)
}

func TestDevProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p, err := identity.NewDevProvider("development", "dev-secret")
	require.NoError(t, err)
	decoder := session.NewTokenDecoder("dev-secret")

	t.Run("mock user signs in", func(t *testing.T) {
		g, err := p.SignInWithPassword(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		claims, err := decoder.Decode(g.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, identity.MockUser.ID, claims.Subject)
		assert.Equal(t, identity.MockUser, g.User)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := p.SignInWithPassword(ctx, "test@example.com", "nope")
		var be *identity.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, 400, be.StatusCode())
		assert.Equal(t, "Invalid login credentials", be.Message)
	})

	t.Run("refresh tokens are single use", func(t *testing.T) {
		g, err := p.SignInWithPassword(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		next, err := p.RefreshSession(ctx, g.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, g.RefreshToken, next.RefreshToken)

		_, err = p.RefreshSession(ctx, g.RefreshToken)
		require.Error(t, err)
	})

	t.Run("code exchange", func(t *testing.T) {
		code, ok := p.IssueCode("data@ideatrek.io")
		require.True(t, ok)

		g, err := p.ExchangeCode(ctx, code, "")
		require.NoError(t, err)
		assert.Equal(t, identity.BypassUser, g.User)

		_, err = p.ExchangeCode(ctx, code, "")
		require.Error(t, err)
	})

	t.Run("sign out revokes refresh tokens", func(t *testing.T) {
		g, err := p.SignInWithPassword(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		require.NoError(t, p.SignOut(ctx, g.AccessToken))
		_, err = p.RefreshSession(ctx, g.RefreshToken)
		require.Error(t, err)
	})

	t.Run("sign up", func(t *testing.T) {
		g, err := p.SignUp(ctx, "new@example.com", "pw")
		require.NoError(t, err)
		assert.True(t, g.HasSession())

		_, err = p.SignUp(ctx, "new@example.com", "pw")
		var be *identity.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "User already registered", be.Message)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	p, secret, err := identity.New(identity.Config{Mode: identity.ModeDev, DevSecret: "s"}, "development", nil)
	require.NoError(t, err)
	assert.Equal(t, "s", secret)
	assert.IsType(t, &identity.DevProvider{}, p)

	_, _, err = identity.New(identity.Config{Mode: identity.ModeDev}, "production", nil)
	require.ErrorIs(t, err, identity.ErrDevProviderInProduction)

	_, _, err = identity.New(identity.Config{}, "production", nil)
	require.ErrorIs(t, err, identity.ErrNotConfigured)

	_, _, err = identity.New(identity.Config{Mode: "ldap"}, "development", nil)
	require.ErrorIs(t, err, identity.ErrUnknownMode)

	p, secret, err = identity.New(identity.Config{URL: "http://localhost:9999", AnonKey: "k"}, "production", nil)
	require.NoError(t, err)
	assert.Empty(t, secret)
	assert.IsType(t, &identity.Client{}, p)
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var p session.Provider = identity.Unconfigured{}

	_, err := p.SignInWithPassword(ctx, "a@b.c", "pw")
	assert.ErrorIs(t, err, identity.ErrNotConfigured)
	_, err = p.RefreshSession(ctx, "r")
	assert.ErrorIs(t, err, identity.ErrNotConfigured)
	_, err = p.ExchangeCode(ctx, "c", "v")
	assert.ErrorIs(t, err, identity.ErrNotConfigured)
	_, err = p.SignUp(ctx, "a@b.c", "pw")
	assert.ErrorIs(t, err, identity.ErrNotConfigured)
	assert.ErrorIs(t, p.SignOut(ctx, "t"), identity.ErrNotConfigured)
	assert.ErrorIs(t, p.ResetPassword(ctx, "a@b.c", "/"), identity.ErrNotConfigured)
	assert.ErrorIs(t, p.Health(ctx), identity.ErrNotConfigured)
}

func TestDevProvider_Accounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, err := identity.NewDevProvider("development", "dev-secret",
		identity.WithDevUser(session.User{ID: "u-9", Email: "Ada@Example.com"}, "lovelace"))
	require.NoError(t, err)

	g, err := p.SignInWithPassword(ctx, "  ADA@example.COM ", "lovelace")
	require.NoError(t, err)
	assert.Equal(t, "u-9", g.User.ID)

	_, err = p.SignUp(ctx, "TEST@example.com", "another-pass")
	assert.ErrorContains(t, err, "user_already_exists")

	_, err = p.SignUp(ctx, "long@example.com", strings.Repeat("x", 80))
	assert.ErrorContains(t, err, "weak_password")
}
