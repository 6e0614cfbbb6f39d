package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/session"
)

func TestTokenDecoder(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := session.SignToken(testSecret, testUser, exp)
	require.NoError(t, err)

	t.Run("verifies signature", func(t *testing.T) {
		t.Parallel()
		d := session.NewTokenDecoder(testSecret)
		assert.True(t, d.Verifies())

		claims, err := d.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, testUser.ID, claims.Subject)
		assert.Equal(t, testUser.Email, claims.Email)
		assert.Equal(t, "authenticated", claims.Role)
		assert.True(t, exp.Equal(claims.ExpiresAt.Time))
	})

	t.Run("rejects foreign signature", func(t *testing.T) {
		t.Parallel()
		_, err := session.NewTokenDecoder("other").Decode(token)
		require.ErrorIs(t, err, session.ErrMalformedToken)
	})

	t.Run("rejects token minted with an arbitrary key", func(t *testing.T) {
		t.Parallel()
		forged, err := session.SignToken("attacker-chosen-key", session.User{ID: "admin"}, exp)
		require.NoError(t, err)

		_, err = session.NewTokenDecoder(testSecret).Decode(forged)
		require.ErrorIs(t, err, session.ErrMalformedToken)

		// Without a secret the same token passes, so production requires one.
		claims, err := session.NewTokenDecoder("").Decode(forged)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Subject)
	})

	t.Run("parses without secret", func(t *testing.T) {
		t.Parallel()
		d := session.NewTokenDecoder("")
		assert.False(t, d.Verifies())

		claims, err := d.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, testUser.ID, claims.Subject)
	})

	t.Run("expired token still decodes", func(t *testing.T) {
		t.Parallel()
		old, err := session.SignToken(testSecret, testUser, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		_, err = session.NewTokenDecoder(testSecret).Decode(old)
		require.NoError(t, err)
	})

	t.Run("requires subject and expiry", func(t *testing.T) {
		t.Parallel()
		noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject: "u-1",
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		d := session.NewTokenDecoder(testSecret)
		_, err = d.Decode(noSub)
		require.ErrorIs(t, err, session.ErrMalformedToken)
		_, err = d.Decode(noExp)
		require.ErrorIs(t, err, session.ErrMalformedToken)
	})

	t.Run("rejects other algorithms", func(t *testing.T) {
		t.Parallel()
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = session.NewTokenDecoder(testSecret).Decode(none)
		require.ErrorIs(t, err, session.ErrMalformedToken)
	})
}
