package response

import (
	"net/http"

	"github.com/ideatrek/authgate/core/handler"
)

// WithHeaders sets headers before rendering response.
func WithHeaders(response handler.Response, headers map[string]string) handler.Response {
	if response == nil || len(headers) == 0 {
		return response
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		return response(w, r)
	}
}

// WithCookies sets cookies before rendering response.
func WithCookies(response handler.Response, cookies ...*http.Cookie) handler.Response {
	if response == nil || len(cookies) == 0 {
		return response
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		for _, c := range cookies {
			if c != nil {
				http.SetCookie(w, c)
			}
		}
		return response(w, r)
	}
}

// NoCache marks response as not cacheable. Auth responses carry cookies and
// must never be served from a shared cache.
func NoCache(response handler.Response) handler.Response {
	return WithHeaders(response, map[string]string{
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
		"Expires":       "0",
	})
}
