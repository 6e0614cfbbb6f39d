// Package middleware provides the HTTP middleware used by the authgate
// server: request IDs, client IP extraction, request logging, rate limiting
// and the route guard.
//
// All middleware follows the same pattern:
//   - Generic functions that accept a handler.Context type parameter
//   - Configuration structs with an optional Skip func
//   - Context helpers for retrieving stored values
//
// # Route Guard
//
// AuthGuard builds a per-request session store over the request cookies,
// asks the guard for a decision and either redirects with 303 See Other or
// passes the request on with the store in the context.
//
//	r.Use(middleware.AuthGuard[*router.Context](middleware.AuthGuardConfig{
//		Guard:              g,
//		Sessions:           factory,
//		Cookies:            cookies,
//		IdentityConfigured: true,
//	}))
//
//	func dashboard(ctx *router.Context) handler.Response {
//		sess, _ := middleware.GetAuthSession(ctx)
//		return response.JSON(sess.User)
//	}
//
// # Rate Limiting
//
// RateLimit throttles requests per client IP by default. Rejections render
// 429 Too Many Requests; limiter store failures render 503 unless FailOpen
// is set.
//
//	limiter, _ := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client), ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//	r.With(middleware.RateLimit[*router.Context](middleware.RateLimitConfig{
//		Limiter:    limiter,
//		SetHeaders: true,
//	})).Post("/api/auth/signin", signIn)
//
// # Logging
//
// Logging emits one structured line per request. 5xx responses and handler
// errors log at Error, 4xx and slow requests at Warn.
package middleware
