package response

import (
	"net/http"

	"github.com/ideatrek/authgate/core/handler"
)

// Redirect creates a 302 Found response.
// HTMX requests get HX-Location with 200 OK instead.
func Redirect(url string) handler.Response {
	return RedirectWithStatus(url, http.StatusFound)
}

// RedirectSeeOther creates a 303 See Other response, for POST-redirect-GET.
func RedirectSeeOther(url string) handler.Response {
	return RedirectWithStatus(url, http.StatusSeeOther)
}

// RedirectWithStatus redirects with a 3xx status, defaulting to 302.
func RedirectWithStatus(url string, status int) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		if IsHTMXRequest(r) {
			w.Header().Set(HeaderHXLocation, url)
			w.WriteHeader(http.StatusOK)
			return nil
		}
		if status < 300 || status >= 400 {
			status = http.StatusFound
		}
		http.Redirect(w, r, url, status)
		return nil
	}
}

// FullReload navigates the client with a full page load. HTMX requests get
// HX-Redirect, which bypasses client-side swapping and re-sends cookies.
func FullReload(url string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		if IsHTMXRequest(r) {
			w.Header().Set(HeaderHXRedirect, url)
			w.WriteHeader(http.StatusOK)
			return nil
		}
		http.Redirect(w, r, url, http.StatusSeeOther)
		return nil
	}
}
