// Package clientip extracts the client IP address from HTTP requests.
//
// Headers are checked in order: CF-Connecting-IP, DO-Connecting-IP,
// X-Forwarded-For (leftmost entry), X-Real-IP, then RemoteAddr. Invalid and
// unspecified addresses are skipped.
//
//	key := "signin:" + clientip.GetIP(r)
package clientip
