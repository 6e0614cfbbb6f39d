// Package handler defines the typed handler contract shared by the router,
// the middleware and the application handlers.
//
// A handler receives a Context and returns a Response. The Response is a
// deferred renderer, so middleware can decorate it (set headers, swap it for a
// redirect) before anything is written:
//
//	func dashboard(ctx *router.Context) handler.Response {
//		sess, ok := middleware.GetAuthSession(ctx)
//		if !ok {
//			return response.Error(response.ErrUnauthorized)
//		}
//		return response.JSON(sess.User)
//	}
//
// Middleware has the signature func(next HandlerFunc[C]) HandlerFunc[C] and
// can be composed with Chain.
package handler
