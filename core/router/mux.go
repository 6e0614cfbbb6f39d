package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/logger"
)

type mux[C handler.Context] struct {
	chi          chi.Router
	root         *mux[C]
	middlewares  []handler.Middleware[C]
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request, map[string]string) C
	logger       *slog.Logger
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		chi:          chi.NewRouter(),
		errorHandler: defaultErrorHandler[C],
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.newContext == nil {
		m.newContext = func(w http.ResponseWriter, r *http.Request, params map[string]string) C {
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(NewContext(w, r, params)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}
	m.root = m

	m.chi.NotFound(func(w http.ResponseWriter, r *http.Request) {
		m.fail(w, r, ErrNotFound)
	})
	m.chi.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		m.fail(w, r, ErrMethodNotAllowed)
	})
	return m
}

// ServeHTTP implements http.Handler.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.chi.ServeHTTP(w, r)
}

func (m *mux[C]) Get(pattern string, h handler.HandlerFunc[C])    { m.handle(http.MethodGet, pattern, h) }
func (m *mux[C]) Post(pattern string, h handler.HandlerFunc[C])   { m.handle(http.MethodPost, pattern, h) }
func (m *mux[C]) Put(pattern string, h handler.HandlerFunc[C])    { m.handle(http.MethodPut, pattern, h) }
func (m *mux[C]) Delete(pattern string, h handler.HandlerFunc[C]) { m.handle(http.MethodDelete, pattern, h) }
func (m *mux[C]) Patch(pattern string, h handler.HandlerFunc[C])  { m.handle(http.MethodPatch, pattern, h) }
func (m *mux[C]) Head(pattern string, h handler.HandlerFunc[C])   { m.handle(http.MethodHead, pattern, h) }

func (m *mux[C]) Handle(pattern string, h handler.HandlerFunc[C]) {
	m.chi.Handle(pattern, m.wrap(h))
}

func (m *mux[C]) Method(pattern string, h handler.HandlerFunc[C], methods ...string) {
	for _, method := range methods {
		m.handle(strings.ToUpper(method), pattern, h)
	}
}

func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	m.middlewares = append(m.middlewares, middlewares...)
}

func (m *mux[C]) With(middlewares ...handler.Middleware[C]) Router[C] {
	child := m.child(m.chi)
	child.middlewares = append(child.middlewares, middlewares...)
	return child
}

func (m *mux[C]) Group(fn func(r Router[C])) Router[C] {
	child := m.child(m.chi)
	if fn != nil {
		fn(child)
	}
	return child
}

func (m *mux[C]) Route(pattern string, fn func(r Router[C])) Router[C] {
	sub := chi.NewRouter()
	if root, ok := m.root.chi.(*chi.Mux); ok {
		sub.NotFound(root.NotFoundHandler())
		sub.MethodNotAllowed(root.MethodNotAllowedHandler())
	}

	child := m.child(sub)
	if fn != nil {
		fn(child)
	}
	m.chi.Mount(pattern, sub)
	return child
}

func (m *mux[C]) Mount(pattern string, h http.Handler) {
	if h == nil {
		panic(ErrNilSubrouter)
	}
	m.chi.Mount(pattern, h)
}

func (m *mux[C]) Routes() []Route {
	var routes []Route
	_ = chi.Walk(m.chi, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, Route{Method: method, Pattern: route})
		return nil
	})
	return routes
}

func (m *mux[C]) child(r chi.Router) *mux[C] {
	return &mux[C]{
		chi:          r,
		root:         m.root,
		middlewares:  slices.Clone(m.middlewares),
		errorHandler: m.errorHandler,
		newContext:   m.newContext,
		logger:       m.logger,
	}
}

func (m *mux[C]) handle(method, pattern string, h handler.HandlerFunc[C]) {
	m.chi.Method(method, pattern, m.wrap(h))
}

// wrap binds h and the current middleware stack into an http.HandlerFunc.
func (m *mux[C]) wrap(h handler.HandlerFunc[C]) http.HandlerFunc {
	h = handler.Chain(h, m.middlewares...)
	return func(w http.ResponseWriter, r *http.Request) {
		m.serve(w, r, h)
	}
}

func (m *mux[C]) serve(w http.ResponseWriter, r *http.Request, h handler.HandlerFunc[C]) {
	ww := newResponseWriter(w)
	ctx := m.newContext(ww, r, urlParams(r))

	defer func() {
		if p := recover(); p != nil {
			perr := &panicError{value: p, stack: debug.Stack()}
			if ww.Written() {
				m.logger.Error("panic after response written",
					logger.Error(perr),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.StatusCode(ww.Status()),
					slog.String("stack", string(perr.stack)))
				return
			}
			m.errorHandler(ctx, perr)
		}
	}()

	resp := h(ctx)
	if resp == nil {
		m.errorHandler(ctx, ErrNilResponse)
		return
	}
	if err := resp(ww, ctx.Request()); err != nil {
		m.errorHandler(ctx, err)
	}
}

func (m *mux[C]) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := m.newContext(newResponseWriter(w), r, nil)
	m.errorHandler(ctx, err)
}

func urlParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Keys) == 0 {
		return nil
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return params
}
