// Package response builds handler.Response values: text, HTML, JSON,
// redirects aware of HTMX, and error handlers that map errors carrying a
// StatusCode() int to structured HTTPError bodies.
//
//	func session(ctx *router.Context) handler.Response {
//		s, err := store.Get(ctx)
//		if err != nil {
//			return response.Error(response.ErrServiceUnavailable.WithError(err))
//		}
//		return response.NoCache(response.JSON(s))
//	}
//
// FullReload forces a full navigation, which a browser needs to pick up
// cookies written during an OAuth callback.
package response
