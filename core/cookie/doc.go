// Package cookie provides cookie storage that works the same way in two
// execution contexts.
//
// Manager holds shared attribute defaults and the size limit. On top of it
// two Bridge variants are selected at construction time:
//
//   - RequestJar reads the inbound request and writes Set-Cookie headers on
//     the response (edge interception, API handlers).
//   - DocumentJar reads and writes a single document.cookie-style string
//     (browser-like clients, the CLI through FileDocument).
//
// Bridges never fail loudly. Storage errors are logged, reads report absence
// and Blocked reports that cookies are being rejected so callers can surface
// actionable guidance:
//
//	m := cookie.NewFromConfig(cfg.Cookie, cookie.WithSecure(production))
//	jar := cookie.NewRequestJar(m, w, r, cookie.WithLogger(log))
//	jar.Set("sb-access-token", token)
//	if jar.Blocked() {
//		// report cookies blocked
//	}
package cookie
