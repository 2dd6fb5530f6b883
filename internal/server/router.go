package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] internally for routing.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	scoped      []Middleware // added by [BasicRouter.With]; runs after the method check
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
//
// Only routes registered after the call are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// With returns a router sharing the same mux whose routes get middleware on top of the current stack.
//
// Requests with the wrong method are rejected before the group's middleware runs.
func (r *BasicRouter) With(middleware ...Middleware) *BasicRouter {
	return &BasicRouter{
		mux:         r.mux,
		middlewares: slices.Clone(r.middlewares),
		scoped:      append(slices.Clone(r.scoped), middleware...),
	}
}

// Handle registers a [Handler] for the specified HTTP method and path.
//
// The method check runs inside the [BasicRouter.Use] stack so preflight and logging middleware still see
// the request, and outside the [BasicRouter.With] group so rejected methods never reach it.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	inner := wrap(handler, r.scoped)
	methodHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			w.Header().Set("Allow", strings.ToUpper(method))
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		inner.ServeHTTP(w, req)
	})

	r.mux.Handle(path, wrap(methodHandler, r.middlewares))
}

// HandleFunc registers fn for the specified HTTP method and path.
func (r *BasicRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.Handle(method, path, fn)
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware, group middleware innermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	return wrap(wrap(handler, r.scoped), r.middlewares)
}

// wrap applies middleware in reverse order (last added wraps first).
func wrap(handler http.Handler, middleware []Middleware) http.Handler {
	wrapped := handler

	for i := len(middleware) - 1; i >= 0; i-- {
		wrapped = middleware[i](wrapped)
	}

	return wrapped
}
