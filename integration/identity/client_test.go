package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/integration/identity"
)

func newClient(t *testing.T, h http.HandlerFunc) *identity.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := identity.NewClient(identity.Config{URL: srv.URL, AnonKey: "anon", RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_NotConfigured(t *testing.T) {
	t.Parallel()

	_, err := identity.NewClient(identity.Config{URL: "http://x"})
	require.ErrorIs(t, err, identity.ErrNotConfigured)
}

func TestClient_SignInWithPassword(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		exp := time.Now().Add(time.Hour).Unix()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/v1/token", r.URL.Path)
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "anon", r.Header.Get("apikey"))
			assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test@example.com", body["email"])
			assert.Equal(t, "pw", body["password"])

			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "at",
				"refresh_token": "rt",
				"expires_at":    exp,
				"user":          map[string]string{"id": "u-1", "email": "test@example.com", "role": "authenticated"},
			})
		})

		g, err := c.SignInWithPassword(context.Background(), "test@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "at", g.AccessToken)
		assert.Equal(t, "rt", g.RefreshToken)
		assert.Equal(t, exp, g.ExpiresAt.Unix())
		assert.Equal(t, session.User{ID: "u-1", Email: "test@example.com", Role: "authenticated"}, g.User)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
		})

		_, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
		var be *identity.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, http.StatusBadRequest, be.StatusCode())
		assert.Equal(t, "invalid_grant", be.Code)
		assert.Equal(t, "Invalid login credentials", be.Message)
	})

	t.Run("server error with plain body", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})

		_, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
		var be *identity.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, http.StatusBadGateway, be.Status)
		assert.Equal(t, "upstream down", be.Message)
	})

	t.Run("msg shaped error", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"code":       500,
				"error_code": "unexpected_failure",
				"msg":        "Database error granting user",
			})
		})

		_, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
		var be *identity.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "unexpected_failure", be.Code)
		assert.Equal(t, "Database error granting user", be.Message)
	})

	t.Run("session alongside error", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "at",
				"expires_in":   3600,
				"user":         map[string]string{"id": "u-1"},
				"msg":          "Database error granting user",
			})
		})

		g, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
		require.Error(t, err)
		require.NotNil(t, g)
		assert.Equal(t, "at", g.AccessToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), g.ExpiresAt, 5*time.Second)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		})

		_, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
		require.ErrorIs(t, err, session.ErrMalformedGrant)
	})

	t.Run("missing access token", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"id": "u-1"}})
		})

		_, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
		require.ErrorIs(t, err, session.ErrMalformedGrant)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := identity.NewClient(identity.Config{URL: url, AnonKey: "anon"})
		require.NoError(t, err)

		_, err = c.SignInWithPassword(context.Background(), "a@b.c", "x")
		require.ErrorIs(t, err, session.ErrBackendUnreachable)
	})

	t.Run("context deadline", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		t.Cleanup(func() { close(release) })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.SignInWithPassword(ctx, "a@b.c", "x")
		require.ErrorIs(t, err, session.ErrBackendUnreachable)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestClient_RefreshAndExchange(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Query().Get("grant_type") {
		case "refresh_token":
			assert.Equal(t, "rt-1", body["refresh_token"])
		case "pkce":
			assert.Equal(t, "code-1", body["auth_code"])
			assert.Equal(t, "verifier-1", body["code_verifier"])
		default:
			t.Errorf("unexpected grant type %q", r.URL.Query().Get("grant_type"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "at", "refresh_token": "rt-2", "expires_in": 60})
	})

	g, err := c.RefreshSession(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-2", g.RefreshToken)

	g, err = c.ExchangeCode(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "at", g.AccessToken)
}

func TestClient_SignOut(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.SignOut(context.Background(), "user-token"))
}

func TestClient_SignUp(t *testing.T) {
	t.Parallel()

	t.Run("confirmation pending", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]string{"id": "u-9", "email": "new@example.com", "role": "authenticated"})
		})

		g, err := c.SignUp(context.Background(), "new@example.com", "pw")
		require.NoError(t, err)
		assert.False(t, g.HasSession())
		assert.Equal(t, "u-9", g.User.ID)
	})

	t.Run("already registered", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
			})
		})

		_, err := c.SignUp(context.Background(), "a@b.c", "pw")
		var be *identity.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "User already registered", be.Message)
	})
}

func TestClient_ResetPasswordAndHealth(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/recover":
			assert.Equal(t, "http://site/landing/reset-password", r.URL.Query().Get("redirect_to"))
			writeJSON(w, http.StatusOK, map[string]any{})
		case "/auth/v1/health":
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, http.StatusOK, map[string]string{"name": "GoTrue"})
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, c.ResetPassword(context.Background(), "a@b.c", "http://site/landing/reset-password"))
	require.NoError(t, c.Health(context.Background()))
}
