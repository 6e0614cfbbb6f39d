// Package redis connects to Redis for the shared session infrastructure:
// the refresh de-duplication cache and the sign-in rate limiter.
//
// Connect validates the redis:// or rediss:// URL, pings the server with
// exponential backoff and returns the ready client:
//
//	client, err := redis.Connect(ctx, redis.Config{
//		ConnectionURL:  "redis://localhost:6379/0",
//		RetryAttempts:  3,
//		RetryInterval:  time.Second,
//		ConnectTimeout: 10 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Healthcheck adapts the client to a readiness probe.
//
// Errors wrap ErrEmptyConnectionURL, ErrFailedToParseRedisConnString,
// ErrRedisNotReady and ErrHealthcheckFailed; check them with errors.Is.
package redis
