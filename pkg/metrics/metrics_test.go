package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/auth"
	"github.com/ideatrek/authgate/core/guard"
	"github.com/ideatrek/authgate/middleware"
	"github.com/ideatrek/authgate/pkg/metrics"
)

var (
	_ auth.Metrics                = (*metrics.Recorder)(nil)
	_ guard.Metrics               = (*metrics.Recorder)(nil)
	_ middleware.RateLimitMetrics = (*metrics.Recorder)(nil)
)

func scrape(t *testing.T, rec *metrics.Recorder) string {
	t.Helper()
	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := metrics.New()
	rec.AuthAttempt("signin", "retry")
	rec.AuthAttempt("signin", "success")
	rec.AuthResult("signin", "success", 2, 300*time.Millisecond)
	rec.GuardDecision("protected", "redirect")
	rec.GuardDecision("protected", "redirect")
	rec.RateLimited("/api/auth/signin")

	body := scrape(t, rec)
	assert.Contains(t, body, `authgate_auth_attempts_total{op="signin",outcome="retry"} 1`)
	assert.Contains(t, body, `authgate_auth_attempts_total{op="signin",outcome="success"} 1`)
	assert.Contains(t, body, `authgate_auth_results_total{op="signin",result="success"} 1`)
	assert.Contains(t, body, `authgate_auth_duration_seconds_count{op="signin"} 1`)
	assert.Contains(t, body, `authgate_auth_attempts_per_operation_sum{op="signin"} 2`)
	assert.Contains(t, body, `authgate_guard_decisions_total{action="redirect",class="protected"} 2`)
	assert.Contains(t, body, `authgate_ratelimit_rejected_total{path="/api/auth/signin"} 1`)
}

func TestRecorder_Options(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := metrics.New(
		metrics.WithRegistry(reg),
		metrics.WithNamespace("edge"),
		metrics.WithConstLabels(prometheus.Labels{"env": "test"}),
	)
	assert.Same(t, reg, rec.Registry())

	rec.GuardDecision("public", "allow")
	assert.Contains(t, scrape(t, rec), `edge_guard_decisions_total{action="allow",class="public",env="test"} 1`)
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		metrics.New()
		metrics.New()
	})
}
