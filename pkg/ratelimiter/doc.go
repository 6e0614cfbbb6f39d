// Package ratelimiter implements token bucket rate limiting over a pluggable
// Store: MemoryStore for a single instance, RedisStore when limits must hold
// across instances.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client), ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 30 * time.Second,
//	})
//	res, err := limiter.Allow(ctx, "signin:"+clientip.GetIP(r))
//	if err == nil && !res.Allowed() {
//		// reject, Retry-After: res.RetryAfter()
//	}
//
// A drained bucket keeps deducting, so a client that retries while blocked
// stays blocked longer.
package ratelimiter
