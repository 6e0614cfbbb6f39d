package binder

import (
	"mime"
	"net/http"
)

// Binder decodes request data into v.
type Binder func(r *http.Request, v any) error

// Body picks the binder matching the request Content-Type: JSON for
// application/json, Form for url-encoded bodies. Sign-in endpoints accept
// both so that the same handler serves scripts and HTML forms.
func Body() Binder {
	jsonBinder, formBinder := JSON(), Form()
	return func(r *http.Request, v any) error {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			return ErrMissingContentType
		}
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return ErrUnsupportedMediaType
		}
		switch mediaType {
		case "application/json":
			return jsonBinder(r, v)
		case "application/x-www-form-urlencoded":
			return formBinder(r, v)
		default:
			return ErrUnsupportedMediaType
		}
	}
}
