// Package bridge implements the proxy engine: it holds an
// atomically-swapped configuration snapshot, routes incoming requests
// by proxyPath, drives the inbound-parse -> model-map -> outbound-build
// -> upstream-call -> outbound-parse -> inbound-build pipeline, and
// records metrics and a structured request log per spec.md §4.6.
package bridge

import (
	"fmt"

	"github.com/haasonsaas/nexus-bridge/internal/config"
)

// Snapshot is a read-only, indexed view over one loaded BridgeConfig:
// routes and providers looked up by id/proxyPath in O(1), built once
// per config load rather than scanned per request.
type Snapshot struct {
	cfg *config.BridgeConfig

	routesByID   map[string]config.Route
	routesByPath map[string]config.Route
	providers    map[string]config.Provider
}

// NewSnapshot indexes cfg. cfg is assumed already validated
// (config.BridgeConfig.Validate).
func NewSnapshot(cfg *config.BridgeConfig) *Snapshot {
	s := &Snapshot{
		cfg:          cfg,
		routesByID:   make(map[string]config.Route, len(cfg.Routes)),
		routesByPath: make(map[string]config.Route, len(cfg.Routes)),
		providers:    make(map[string]config.Provider, len(cfg.Providers)),
	}
	for _, r := range cfg.Routes {
		s.routesByID[r.ID] = r
		if r.Enabled {
			s.routesByPath[r.ProxyPath] = r
		}
	}
	for _, p := range cfg.Providers {
		s.providers[p.ID] = p
	}
	return s
}

// RouteByPath looks up the unique enabled route whose proxyPath equals
// path.
func (s *Snapshot) RouteByPath(path string) (config.Route, bool) {
	r, ok := s.routesByPath[path]
	return r, ok
}

// RouteByID looks up a route (enabled or not) by id, for resolving a
// proxy-chained outbound.
func (s *Snapshot) RouteByID(id string) (config.Route, bool) {
	r, ok := s.routesByID[id]
	return r, ok
}

// Provider looks up a provider by id.
func (s *Snapshot) Provider(id string) (config.Provider, bool) {
	p, ok := s.providers[id]
	return p, ok
}

// Settings returns the engine settings in effect for this snapshot.
func (s *Snapshot) Settings() config.Settings {
	return s.cfg.Settings
}

// resolvedOutbound is the terminal provider an outbound chain resolves
// to, plus the ordered chain of routes traversed to reach it (route
// closest to the client first).
type resolvedOutbound struct {
	provider config.Provider
	chain    []config.Route
}

// ResolveOutbound follows route.OutboundType/OutboundID, recursing
// through proxy-chained routes up to maxDepth, with cycle detection via
// a visited-route-id set (spec §4.6). Depth 1 means "this route's own
// outbound must be a provider."
func (s *Snapshot) ResolveOutbound(route config.Route, maxDepth int) (*resolvedOutbound, error) {
	visited := make(map[string]bool, maxDepth)
	chain := []config.Route{route}
	cur := route
	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return nil, fmt.Errorf("validation (circular_or_deep): proxy chain exceeds max depth %d", maxDepth)
		}
		if visited[cur.ID] {
			return nil, fmt.Errorf("validation (circular_or_deep): proxy cycle detected at route %q", cur.ID)
		}
		visited[cur.ID] = true

		switch cur.OutboundType {
		case config.OutboundProvider:
			p, ok := s.Provider(cur.OutboundID)
			if !ok {
				return nil, fmt.Errorf("validation: route %q outboundId %q is not a configured provider", cur.ID, cur.OutboundID)
			}
			return &resolvedOutbound{provider: p, chain: chain}, nil
		case config.OutboundProxy:
			next, ok := s.RouteByID(cur.OutboundID)
			if !ok {
				return nil, fmt.Errorf("validation: route %q outboundId %q is not a configured route", cur.ID, cur.OutboundID)
			}
			chain = append(chain, next)
			cur = next
		default:
			return nil, fmt.Errorf("validation: route %q has unknown outboundType %q", cur.ID, cur.OutboundType)
		}
	}
}
