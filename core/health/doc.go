// Package health provides liveness and readiness handlers.
//
//	r.Get("/health/live", health.Liveness[*router.Context])
//	r.Get("/health/ready", health.Readiness[*router.Context](log,
//		health.Check{Name: "redis", Fn: redis.Healthcheck(client)},
//		health.Check{Name: "identity", Fn: identityClient.Health},
//	))
//
// Readiness runs checks concurrently and reports each one in a JSON body.
package health
