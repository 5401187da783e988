package engine

// selectHTTP walks the rule's HTTP routes in declaration order and
// returns the first route that activates: either its match list is
// empty (implicit catch-all) or at least one of its blocks succeeds
// (OR across blocks, AND within a block). First-match-wins in
// declaration order is the core correctness contract of the engine; a
// route that activates shadows everything after it.
//
// The succeeding block is returned alongside the route so the resolver
// can substitute a matched URI prefix on rewrite; it is nil for a
// catch-all activation.
func (r *CompiledRule) selectHTTP(ctx *RequestContext) (*compiledHTTPRoute, *httpMatcher, bool) {
	for _, route := range r.http {
		if len(route.matchers) == 0 {
			return route, nil, true
		}
		for _, matcher := range route.matchers {
			if matcher.matches(ctx) {
				return route, matcher, true
			}
		}
	}
	return nil, nil, false
}

// selectTCP is the L4 counterpart of selectHTTP.
func (r *CompiledRule) selectTCP(ctx *ConnectionContext) (*compiledTCPRoute, bool) {
	for _, route := range r.tcp {
		if len(route.matchers) == 0 {
			return route, true
		}
		for _, matcher := range route.matchers {
			if matcher.matches(ctx) {
				return route, true
			}
		}
	}
	return nil, false
}
