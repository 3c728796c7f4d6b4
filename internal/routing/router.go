package routing

import (
	"context"
	"net/http"
	"runtime/debug"
)

type Router struct {
	classifier *Classifier
	routes     map[string]map[string]routeEntry
	patterns   []patternEntry
}

type routeEntry struct {
	rc      RouteClass
	handler http.Handler
}

type patternEntry struct {
	pattern PathPattern
	methods map[string]routeEntry
}

func NewRouter(classifier *Classifier) *Router {
	return &Router{
		classifier: classifier,
		routes:     make(map[string]map[string]routeEntry),
	}
}

// Handle registers a handler for an exact path or, when the path carries
// {param} segments, a pattern route. Pattern routes are matched in
// registration order after exact routes.
func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	entry := routeEntry{rc: rc, handler: recoverWrap(rc, h)}

	if p, ok := parsePathPattern(path); ok {
		for i := range r.patterns {
			if r.patterns[i].pattern.raw == path {
				r.patterns[i].methods[method] = entry
				return
			}
		}
		r.patterns = append(r.patterns, patternEntry{
			pattern: p,
			methods: map[string]routeEntry{method: entry},
		})
		return
	}

	if r.routes[path] == nil {
		r.routes[path] = make(map[string]routeEntry)
	}
	r.routes[path][method] = entry
}

func recoverWrap(rc RouteClass, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				_ = debug.Stack()
				WriteError(w, req, rc, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		h.ServeHTTP(w, req)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if methods, ok := r.routes[req.URL.Path]; ok {
		r.dispatch(w, req, methods, nil)
		return
	}
	for _, pe := range r.patterns {
		if pe.pattern.Match(req.URL.Path) {
			r.dispatch(w, req, pe.methods, pe.pattern.Params(req.URL.Path))
			return
		}
	}
	WriteError(w, req, r.classifier.Classify(req.URL.Path), http.StatusNotFound, "not_found", "not found")
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request, methods map[string]routeEntry, params map[string]string) {
	entry, ok := methods[req.Method]
	if !ok {
		WriteError(w, req, entrypointClass(methods, r.classifier.Classify(req.URL.Path)), http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if len(params) > 0 {
		req = req.WithContext(context.WithValue(req.Context(), paramsContextKey{}, params))
	}
	entry.handler.ServeHTTP(w, req)
}

func entrypointClass(methods map[string]routeEntry, fallback RouteClass) RouteClass {
	for _, e := range methods {
		return e.rc
	}
	return fallback
}

type paramsContextKey struct{}

// PathParam returns the value captured for a {name} segment on the
// matched pattern route, or "" on an exact route.
func PathParam(r *http.Request, name string) string {
	params, _ := r.Context().Value(paramsContextKey{}).(map[string]string)
	return params[name]
}
