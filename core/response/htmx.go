package response

import "net/http"

// HTMX headers.
const (
	HeaderHXRequest  = "HX-Request"
	HeaderHXLocation = "HX-Location"
	HeaderHXRedirect = "HX-Redirect"
	HeaderHXRefresh  = "HX-Refresh"
)

// IsHTMXRequest reports whether r was sent by an HTMX client.
func IsHTMXRequest(r *http.Request) bool {
	return r.Header.Get(HeaderHXRequest) == "true"
}
