package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/response"
	"github.com/ideatrek/authgate/pkg/clientip"
	"github.com/ideatrek/authgate/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	Skip    func(ctx handler.Context) bool
	Limiter ratelimiter.RateLimiter
	// KeyExtractor defaults to the client IP.
	KeyExtractor func(ctx handler.Context) string
	// ErrorHandler renders a rejection. Default: 429 HTTPError.
	ErrorHandler func(ctx handler.Context, result *ratelimiter.Result) handler.Response
	SetHeaders   bool
	// FailOpen lets requests through when the limiter store errors.
	FailOpen bool
	Logger   *slog.Logger
	// Metrics counts rejections. Optional.
	Metrics RateLimitMetrics
}

// RateLimitMetrics receives rate limit rejections.
type RateLimitMetrics interface {
	RateLimited(path string)
}

// RateLimit throttles requests per key. It panics without a Limiter.
func RateLimit[C handler.Context](cfg RateLimitConfig) handler.Middleware[C] {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = func(ctx handler.Context) string {
			if ip, ok := GetClientIP(ctx); ok {
				return ip
			}
			return clientip.GetIP(ctx.Request())
		}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ handler.Context, result *ratelimiter.Result) handler.Response {
			err := response.ErrTooManyRequests.WithMessage("Too many attempts. Please wait before trying again.")
			if result != nil && result.RetryAfter() > 0 {
				err = err.WithDetails(map[string]any{
					"retry_after": int(result.RetryAfter().Seconds()),
				})
			}
			return response.Error(err)
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			key := cfg.KeyExtractor(ctx)
			result, err := cfg.Limiter.Allow(ctx, key)
			if err != nil {
				cfg.Logger.ErrorContext(ctx, "rate limiter unavailable",
					logger.Component("ratelimit"), logger.Error(err))
				if cfg.FailOpen {
					return next(ctx)
				}
				return response.Error(response.ErrServiceUnavailable.WithError(err))
			}

			if !result.Allowed() {
				cfg.Logger.WarnContext(ctx, "rate limit exceeded",
					logger.Component("ratelimit"), logger.Path(ctx.Request().URL.Path))
				if cfg.Metrics != nil {
					cfg.Metrics.RateLimited(ctx.Request().URL.Path)
				}
				resp := cfg.ErrorHandler(ctx, result)
				if cfg.SetHeaders {
					return withRateLimitHeaders(resp, result)
				}
				return resp
			}

			resp := next(ctx)
			if cfg.SetHeaders && resp != nil {
				return withRateLimitHeaders(resp, result)
			}
			return resp
		}
	}
}

func withRateLimitHeaders(resp handler.Response, result *ratelimiter.Result) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		if retry := result.RetryAfter(); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		}
		return resp(w, r)
	}
}
