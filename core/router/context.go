package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default handler.Context. It delegates context.Context
// methods to the request's context.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

// NewContext creates a Context for one request.
func NewContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{w: w, r: r, params: params}
}

func (c *Context) Deadline() (deadline time.Time, ok bool) { return c.r.Context().Deadline() }
func (c *Context) Done() <-chan struct{}                    { return c.r.Context().Done() }
func (c *Context) Err() error                               { return c.r.Context().Err() }
func (c *Context) Value(key any) any                        { return c.r.Context().Value(key) }

// SetValue stores val in the request's context.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}

// Request returns the current request, including values set with SetValue.
func (c *Context) Request() *http.Request { return c.r }

// ResponseWriter returns the response writer.
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// Param returns the URL parameter key, or "" when absent.
func (c *Context) Param(key string) string {
	return c.params[key]
}
