package authgate

import (
	"net/http"

	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/router"
	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/middleware"
)

// Context is the request context of the authgate router.
type Context struct {
	*router.Context
	app   *App
	store *session.Store
}

func (a *App) newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{Context: router.NewContext(w, r, params), app: a}
}

// Store returns the session store of this request. Routes behind the guard
// share the guard's store; other routes get one built on first use.
func (c *Context) Store() *session.Store {
	if s, ok := middleware.GetSessionStore(c); ok {
		return s
	}
	if c.store == nil {
		jar := cookie.NewRequestJar(c.app.cookies, c.ResponseWriter(), c.Request(), cookie.WithLogger(c.app.log))
		c.store = c.app.sessions.Store(jar)
	}
	return c.store
}

// Session returns the session admitted by the guard, if any.
func (c *Context) Session() (*session.Session, bool) {
	return middleware.GetAuthSession(c)
}
