package routing

import (
	"errors"
	"strings"
)

type RouteClass string

const (
	RouteClassUI          RouteClass = "ui"
	RouteClassPublicAPI   RouteClass = "public_api"
	RouteClassInternalAPI RouteClass = "internal_api"
	RouteClassExport      RouteClass = "export"
	RouteClassOps         RouteClass = "ops"
	RouteClassStatic      RouteClass = "static"
)

func knownRouteClass(rc RouteClass) bool {
	switch rc {
	case RouteClassUI, RouteClassPublicAPI, RouteClassInternalAPI, RouteClassExport, RouteClassOps, RouteClassStatic:
		return true
	}
	return false
}

type Classifier struct {
	entrypoint        string
	allowExact        map[string]RouteClass
	allowPathPatterns []pathPatternRoute
}

func NewClassifier(a Allowlist, entrypoint string) (*Classifier, error) {
	ep, ok := a.Entrypoints[entrypoint]
	if !ok {
		return nil, errors.New("allowlist: missing entrypoint")
	}
	if len(ep.Routes) == 0 {
		return nil, errors.New("allowlist: entrypoint routes empty")
	}

	exact := make(map[string]RouteClass, len(ep.Routes))
	var patterns []pathPatternRoute
	for _, r := range ep.Routes {
		if r.Path == "" || r.RouteClass == "" {
			return nil, errors.New("allowlist: invalid route")
		}
		if p, ok := parsePathPattern(r.Path); ok {
			patterns = append(patterns, pathPatternRoute{pattern: p, rc: RouteClass(r.RouteClass)})
			continue
		}
		exact[r.Path] = RouteClass(r.RouteClass)
	}
	return &Classifier{entrypoint: entrypoint, allowExact: exact, allowPathPatterns: patterns}, nil
}

func (c *Classifier) Classify(path string) RouteClass {
	if rc, ok := c.allowExact[path]; ok {
		return rc
	}
	for _, p := range c.allowPathPatterns {
		if p.pattern.Match(path) {
			return p.rc
		}
	}

	switch {
	case hasPrefixSegment(path, "/api/internal"):
		return RouteClassInternalAPI
	case isExportPath(path):
		return RouteClassExport
	case hasPrefixSegment(path, "/api"):
		return RouteClassPublicAPI
	case path == "/healthz" || path == "/readyz":
		return RouteClassOps
	case hasPrefixSegment(path, "/assets") || hasPrefixSegment(path, "/static"):
		return RouteClassStatic
	default:
		return RouteClassUI
	}
}

func hasPrefixSegment(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func isExportPath(path string) bool {
	// /api/deals/{id}/export/*
	// segment-boundary: the deal id must be a single segment.
	if !strings.HasPrefix(path, "/api/deals/") {
		return false
	}
	rest := strings.TrimPrefix(path, "/api/deals/")
	id, after, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		return false
	}
	return hasPrefixSegment("/"+after, "/export")
}

type pathPatternRoute struct {
	pattern PathPattern
	rc      RouteClass
}
