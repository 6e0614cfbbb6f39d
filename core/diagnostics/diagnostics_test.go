package diagnostics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/diagnostics"
	"github.com/ideatrek/authgate/core/health"
	"github.com/ideatrek/authgate/core/session"
)

const (
	safariUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	chromeUA  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0"
	botUA     = "Googlebot/2.1 (+http://www.google.com/bot.html)"
)

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func ok(context.Context) error { return nil }

func configured() diagnostics.Config {
	return diagnostics.Config{
		Environment: "development",
		IdentityURL: "https://project.identity.example",
		IdentityKey: "anon-key-0123456789",
	}
}

func request(ua string, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/diagnose", nil)
	r.Header.Set("User-Agent", ua)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestParseUserAgent(t *testing.T) {
	t.Parallel()

	safari := diagnostics.ParseUserAgent(safariUA)
	assert.True(t, safari.Safari)
	assert.False(t, safari.Chrome)
	assert.Equal(t, "browser", safari.Type())

	chrome := diagnostics.ParseUserAgent(chromeUA)
	assert.True(t, chrome.Chrome)
	assert.False(t, chrome.Safari)

	assert.True(t, diagnostics.ParseUserAgent(firefoxUA).Firefox)
	assert.Equal(t, "bot", diagnostics.ParseUserAgent(botUA).Type())
	assert.Equal(t, "unknown", diagnostics.ParseUserAgent("curl/8.0").Type())
}

func TestDiagnose_SafariWithoutCookies(t *testing.T) {
	t.Parallel()

	d := diagnostics.New(configured(), ok)
	rep := d.Diagnose(context.Background(), request(safariUA))

	assert.Equal(t, "success", rep.Status)
	assert.Equal(t, "browser", rep.Client.Type)
	assert.False(t, rep.Client.Cookies.Present)
	assert.Contains(t, rep.Client.PotentialIssues, diagnostics.IssueSafari)
	assert.Contains(t, rep.Client.PotentialIssues, diagnostics.IssueNoCookies)
	assert.Contains(t, rep.Recommendations, diagnostics.RecommendEnableCookies)
	assert.Contains(t, rep.Recommendations, diagnostics.RecommendSafari)
	assert.NotContains(t, rep.Recommendations, diagnostics.RecommendConfigure)
	assert.True(t, rep.Infrastructure.Auth.Operational)
}

func TestDiagnose_Cookies(t *testing.T) {
	t.Parallel()

	d := diagnostics.New(configured(), ok)

	t.Run("unrelated cookies only", func(t *testing.T) {
		t.Parallel()
		rep := d.Diagnose(context.Background(), request(firefoxUA, &http.Cookie{Name: "theme", Value: "dark"}))
		assert.True(t, rep.Client.Cookies.Present)
		assert.False(t, rep.Client.Cookies.AuthCookiesFound)
		assert.Contains(t, rep.Recommendations, diagnostics.RecommendClearCookies)
		assert.Contains(t, rep.Recommendations, diagnostics.RecommendFirefox)
	})

	t.Run("chunked auth cookie counts", func(t *testing.T) {
		t.Parallel()
		rep := d.Diagnose(context.Background(), request(chromeUA, &http.Cookie{Name: "sb-access-token.0", Value: "x"}))
		assert.True(t, rep.Client.Cookies.AuthCookiesFound)
		require.Len(t, rep.Client.Cookies.Expected, 3)
		assert.Equal(t, diagnostics.CookieCheck{Name: "sb-access-token", Found: true}, rep.Client.Cookies.Expected[0])
		assert.False(t, rep.Client.Cookies.Expected[1].Found)
		assert.NotContains(t, rep.Recommendations, diagnostics.RecommendClearCookies)
		assert.Contains(t, rep.Client.PotentialIssues, diagnostics.IssueChrome)
	})
}

func TestDiagnose_Infrastructure(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1_700_000_000, 0), step: 2 * time.Second}
	d := diagnostics.New(diagnostics.Config{}, func(context.Context) error { return errors.New("503 upstream") },
		diagnostics.WithClock(clock.Now),
		diagnostics.WithDependency(health.Check{Name: "redis", Fn: func(context.Context) error { return errors.New("connection refused") }}),
	)
	rep := d.Diagnose(context.Background(), request("curl/8.0"))

	assert.False(t, rep.Infrastructure.Auth.Operational)
	assert.Equal(t, "503 upstream", rep.Infrastructure.Auth.Error)
	assert.True(t, rep.Infrastructure.Auth.Slow)
	assert.False(t, rep.Infrastructure.Dependencies["redis"].Operational)
	assert.False(t, rep.Environment.Variables["identity_url"].Exists)
	assert.Equal(t, "unknown", rep.Environment.Name)

	assert.Contains(t, rep.Recommendations, diagnostics.RecommendConfigure)
	assert.Contains(t, rep.Recommendations, diagnostics.RecommendDependency)
	assert.Contains(t, rep.Recommendations, diagnostics.RecommendAuthDown)
	assert.Contains(t, rep.Recommendations, diagnostics.RecommendAuthSlow)
}

func TestDiagnose_MasksSecrets(t *testing.T) {
	t.Parallel()

	rep := diagnostics.New(configured(), ok).Diagnose(context.Background(), request(chromeUA))
	assert.Equal(t, "https://pr...", rep.Environment.Variables["identity_url"].Value)
	assert.Equal(t, "anon-key-0...", rep.Environment.Variables["identity_key"].Value)
}

type reader struct {
	sess *session.Session
	err  error
}

func (r reader) Get(context.Context) (*session.Session, error) { return r.sess, r.err }

func TestStatus(t *testing.T) {
	t.Parallel()

	d := diagnostics.New(configured(), ok)

	t.Run("session present", func(t *testing.T) {
		t.Parallel()
		exp := time.Now().Add(time.Hour)
		rep := d.Status(context.Background(), request(chromeUA, &http.Cookie{Name: "sb-access-token", Value: "x"}),
			reader{sess: &session.Session{ExpiresAt: exp, User: session.User{ID: "u-1", Email: "a@b.c"}}})

		assert.True(t, rep.Auth.Session.Exists)
		require.NotNil(t, rep.Auth.Session.User)
		assert.Equal(t, "u-1", rep.Auth.Session.User.ID)
		assert.True(t, rep.Client.CookiesPresent)
		assert.Equal(t, "https://******", rep.Identity.URL)
		assert.True(t, rep.Identity.KeyConfigured)
	})

	t.Run("session error", func(t *testing.T) {
		t.Parallel()
		rep := d.Status(context.Background(), request(chromeUA), reader{err: session.ErrMalformedToken})
		assert.False(t, rep.Auth.Session.Exists)
		assert.NotEmpty(t, rep.Auth.Session.Error)
	})

	t.Run("placeholder key", func(t *testing.T) {
		t.Parallel()
		cfg := configured()
		cfg.IdentityKey = "REPLACE_AFTER_ROTATION"
		rep := diagnostics.New(cfg, ok).Status(context.Background(), request(chromeUA), nil)
		assert.True(t, rep.Identity.HasKey)
		assert.False(t, rep.Identity.KeyConfigured)
	})

	t.Run("unconfigured url", func(t *testing.T) {
		t.Parallel()
		rep := diagnostics.New(diagnostics.Config{}, nil).Status(context.Background(), nil, nil)
		assert.Equal(t, "Not configured", rep.Identity.URL)
		assert.False(t, rep.Auth.Service.Operational)
		assert.Equal(t, "not configured", rep.Auth.Service.Error)
	})
}
