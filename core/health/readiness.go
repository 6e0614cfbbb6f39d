package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/response"
	"github.com/ideatrek/authgate/pkg/async"
)

// DefaultCheckTimeout bounds every readiness check.
const DefaultCheckTimeout = 5 * time.Second

// Check is a named dependency probe.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Report is the readiness response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Readiness runs all checks concurrently. It answers 200 with status READY
// when every check passes and 503 otherwise.
func Readiness[C handler.Context](log *slog.Logger, checks ...Check) handler.HandlerFunc[C] {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx C) handler.Response {
		cctx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
		defer cancel()

		futures := make([]*async.ExecFuture, len(checks))
		for i, c := range checks {
			futures[i] = async.Exec(cctx, c, func(ctx context.Context, c Check) error {
				return c.Fn(ctx)
			})
		}

		report := Report{Status: "READY", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for i, f := range futures {
			name := checks[i].Name
			if err := f.AwaitContext(cctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component("health"), slog.String("check", name), logger.Error(err))
				report.Checks[name] = err.Error()
				report.Status = "NOT_READY"
				status = http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = "ok"
		}
		return response.NoCache(response.JSONWithStatus(report, status))
	}
}
