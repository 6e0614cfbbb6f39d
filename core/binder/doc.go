// Package binder decodes request bodies and query strings into structs.
//
// JSON reads a bounded application/json body, rejecting unknown fields and
// trailing data. Form and Query bind url.Values by struct tag:
//
//	type credentials struct {
//		Email    string `json:"email" form:"email"`
//		Password string `json:"password" form:"password"`
//	}
//
//	var in credentials
//	if err := binder.Body()(r, &in); err != nil {
//		return response.Error(response.ErrBadRequest.WithError(err))
//	}
//
// Body dispatches on Content-Type so one handler accepts both encodings.
// String values have control characters removed.
package binder
