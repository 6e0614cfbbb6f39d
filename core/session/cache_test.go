package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/session"
)

func TestMemoryExchangeCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := session.NewMemoryExchangeCache()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	g := &session.Grant{AccessToken: "at", RefreshToken: "rt", User: testUser}
	require.NoError(t, c.Set(ctx, "k", g, time.Minute))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g, got)

	got.AccessToken = "mutated"
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "at", again.AccessToken)

	require.NoError(t, c.Set(ctx, "gone", g, -time.Second))
	_, ok, err = c.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestRedisExchangeCache(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	c := session.NewRedisExchangeCache(client, "test:")

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	g := &session.Grant{AccessToken: "at", RefreshToken: "rt", ExpiresAt: exp, User: testUser}
	require.NoError(t, c.Set(ctx, "k", g, 30*time.Second))
	assert.True(t, mr.Exists("test:k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, testUser, got.User)
	assert.True(t, exp.Equal(got.ExpiresAt))

	mr.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisExchangeCache_Unavailable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	c := session.NewRedisExchangeCache(client, "test:")
	_, ok, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, ok)
}
