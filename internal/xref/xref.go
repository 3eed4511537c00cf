// Package xref links UI call sites to the backend routes they reach.
package xref

import (
	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/pathmatch"
	"github.com/starford/stackscope/internal/uiextract"
)

// Confidence is attached to every link. Matching is heuristic, so the value
// is a constant rather than a computed score.
const Confidence = 0.8

// Link is one UI call matched to one backend route.
type Link struct {
	Call       uiextract.Call
	Route      backendextract.Route
	Confidence float64
}

// Metadata returns the fields stored on the calls edge and the api mapping
// derived from l.
func (l Link) Metadata() map[string]any {
	return map[string]any{
		"endpoint":       l.Call.Path,
		"route_path":     l.Route.Path,
		"method":         l.Call.Method,
		"flutter_method": l.Call.Method,
		"python_method":  l.Route.Method,
		"call_file":      l.Call.File,
		"call_line":      l.Call.Line,
		"route_file":     l.Route.File,
		"confidence":     l.Confidence,
	}
}

// Build compares every call with every route and returns one link per
// match, in call order then route order. A call that matches several routes
// yields several links.
func Build(calls []uiextract.Call, routes []backendextract.Route) []Link {
	var links []Link
	for _, c := range calls {
		for _, r := range routes {
			if !pathmatch.SameMethod(c.Method, r.Method) || !pathmatch.Match(c.Path, r.Path) {
				continue
			}
			links = append(links, Link{Call: c, Route: r, Confidence: Confidence})
		}
	}
	return links
}
