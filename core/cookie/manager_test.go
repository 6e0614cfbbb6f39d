package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/cookie"
)

func TestManager(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()
		m := cookie.New()

		w := httptest.NewRecorder()
		require.NoError(t, m.Set(w, "test", "value123"))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", w.Header().Get("Set-Cookie"))

		value, err := m.Get(req, "test")
		require.NoError(t, err)
		assert.Equal(t, "value123", value)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		m := cookie.New()

		c, err := m.Build("name", "v")
		require.NoError(t, err)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.False(t, c.Secure)
	})

	t.Run("cookie not found", func(t *testing.T) {
		t.Parallel()
		m := cookie.New()

		_, err := m.Get(httptest.NewRequest(http.MethodGet, "/", nil), "missing")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("delete expires cookie", func(t *testing.T) {
		t.Parallel()
		m := cookie.New()

		w := httptest.NewRecorder()
		m.Delete(w, "test")

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "test", cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		m := cookie.NewWithOptions(nil, cookie.WithMaxSize(64))

		_, err := m.Build("big", strings.Repeat("x", 100))
		var tooLarge cookie.ErrCookieTooLarge
		require.ErrorAs(t, err, &tooLarge)
		assert.Equal(t, "big", tooLarge.Name)
		assert.Equal(t, 64, tooLarge.Max)
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New().Build("", "v")
		assert.ErrorIs(t, err, cookie.ErrInvalidName)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg := cookie.DefaultConfig()
	cfg.Domain = "example.com"
	cfg.Secure = true

	m := cookie.NewFromConfig(cfg, cookie.WithMaxAge(60))
	d := m.Defaults()

	assert.Equal(t, "/", d.Path)
	assert.Equal(t, "example.com", d.Domain)
	assert.True(t, d.Secure)
	assert.Equal(t, 60, d.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, d.SameSite)
}

func TestIsLocalHost(t *testing.T) {
	t.Parallel()

	for host, want := range map[string]bool{
		"localhost":        true,
		"localhost:8080":   true,
		"app.localhost":    true,
		"127.0.0.1:3000":   true,
		"[::1]:8080":       true,
		"example.com":      false,
		"example.com:443":  false,
		"auth.ideatrek.io": false,
	} {
		assert.Equal(t, want, cookie.IsLocalHost(host), host)
	}
}
