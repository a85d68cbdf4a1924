// Package router wraps chi with named routes and prefix groups. Route names
// feed the CLI route table and reverse URL building.
package router

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type Middleware func(http.Handler) http.Handler

// Router is the root of the route tree. Its Get/Post/Group delegate to an
// implicit root group with an empty prefix.
type Router struct {
	root *Group

	mux   chi.Router
	mu    sync.RWMutex
	names map[string]string
}

// Group scopes a path prefix and a middleware chain. Groups nest; a child
// inherits and extends its parent's prefix and chain.
type Group struct {
	root        *Router
	prefix      string
	middlewares []Middleware
}

func New() *Router {
	r := &Router{
		mux:   chi.NewRouter(),
		names: make(map[string]string),
	}
	r.root = &Group{root: r, prefix: "/"}
	return r
}

// Group derives a top-level group from the implicit root.
func (r *Router) Group(prefix string, middlewares ...Middleware) *Group {
	return r.root.Group(prefix, middlewares...)
}

func (r *Router) Get(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.root.Get(path, name, handler, middlewares...)
}

func (r *Router) Post(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.root.Post(path, name, handler, middlewares...)
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

// Use installs middleware on the underlying mux. Must be called before any
// route is mounted (chi enforces this).
func (r *Router) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

// Param returns the named URL parameter for the current request.
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// Path returns the registered pattern for a named route.
func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.names[name]
	return path, ok
}

// URL builds a concrete path for a named route by substituting parameters.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("route %q not found", name)
	}

	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("missing parameters for route %q", name)
	}
	return path, nil
}

// Names returns a copy of the name to pattern table.
func (r *Router) Names() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.names))
	for name, pattern := range r.names {
		out[name] = pattern
	}
	return out
}

// Group derives a child group. The prefix may be empty to scope middleware
// without extending the path.
func (g *Group) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		root:        g.root,
		prefix:      joinPath(g.prefix, prefix),
		middlewares: append(append([]Middleware(nil), g.middlewares...), middlewares...),
	}
}

func (g *Group) Get(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.handle(http.MethodGet, path, name, handler, middlewares...)
}

func (g *Group) Post(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.handle(http.MethodPost, path, name, handler, middlewares...)
}

func (g *Group) handle(method, path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	pattern := joinPath(g.prefix, path)

	var h http.Handler = handler
	chain := append(append([]Middleware(nil), g.middlewares...), middlewares...)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	g.root.mux.Method(method, pattern, h)

	if name == "" {
		return
	}
	g.root.mu.Lock()
	g.root.names[name] = pattern
	g.root.mu.Unlock()
}

// joinPath joins and normalizes path segments into a single /-rooted path.
func joinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}
