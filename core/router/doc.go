// Package router adapts github.com/go-chi/chi/v5 to typed handlers.
//
// Handlers receive a handler.Context and return a handler.Response; errors
// returned by the response and panics recovered during handling go to the
// configured error handler.
//
//	r := router.New[*router.Context](
//		router.WithErrorHandler(response.JSONErrorHandler[*router.Context]),
//	)
//	r.Use(middleware.RequestID[*router.Context]())
//	r.Get("/users/{id}", func(ctx *router.Context) handler.Response {
//		return response.JSON(map[string]string{"id": ctx.Param("id")})
//	})
//	r.Mount("/metrics", promhttp.Handler())
//
// Middlewares registered with Use apply to routes registered after the call.
// Route mounts a chi sub-router; Group shares the parent router.
package router
