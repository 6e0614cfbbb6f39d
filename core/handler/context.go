package handler

import (
	"context"
	"net/http"
)

// Context is the per-request context passed to handlers and middleware.
// core/router.Context is the default implementation.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	// SetValue stores a request-scoped value retrievable through Value.
	SetValue(key, val any)
}
