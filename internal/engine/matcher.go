package engine

import (
	"net"

	"mesh-router/internal/rules"
)

// httpMatcher is the compiled form of one HTTPMatchRequest. All
// populated fields are AND'd; a field left nil contributes no
// constraint. A matcher with zero constraints matches unconditionally.
type httpMatcher struct {
	uri          stringMatcher
	uriPrefix    string // set when uri is a prefix match, used for rewrites
	scheme       stringMatcher
	method       stringMatcher
	authority    stringMatcher
	headers      map[string]stringMatcher
	port         *rules.PortSelector
	sourceLabels map[string]string
	gateways     []string
}

func compileHTTPMatch(m *rules.HTTPMatchRequest) *httpMatcher {
	out := &httpMatcher{
		uri:          compileStringMatch(m.URI),
		scheme:       compileStringMatch(m.Scheme),
		method:       compileStringMatch(m.Method),
		authority:    compileStringMatch(m.Authority),
		port:         m.Port,
		sourceLabels: m.SourceLabels,
		gateways:     m.Gateways,
	}
	if m.URI != nil {
		out.uriPrefix = m.URI.Prefix
	}
	if len(m.Headers) > 0 {
		out.headers = make(map[string]stringMatcher, len(m.Headers))
		for name, hm := range m.Headers {
			out.headers[name] = compileStringMatch(hm)
		}
	}
	return out
}

func (m *httpMatcher) matches(ctx *RequestContext) bool {
	if m.uri != nil && !m.uri.matches(ctx.URI) {
		return false
	}
	if m.scheme != nil && !m.scheme.matches(ctx.Scheme) {
		return false
	}
	if m.method != nil && !m.method.matches(ctx.Method) {
		return false
	}
	if m.authority != nil && !m.authority.matches(ctx.Authority) {
		return false
	}

	// A header named in the block must be present and match.
	for name, matcher := range m.headers {
		value, ok := ctx.Headers[name]
		if !ok || !matcher.matches(value) {
			return false
		}
	}

	if m.port != nil && !portMatches(m.port, ctx.PortName, ctx.Port) {
		return false
	}

	if !labelsMatch(m.sourceLabels, ctx.SourceLabels) {
		return false
	}

	if len(m.gateways) > 0 && !gatewayMatches(m.gateways, ctx.Gateways) {
		return false
	}

	return true
}

// l4Matcher is the compiled form of one L4MatchAttributes. Subnets are
// parsed at compile time; validation guarantees they are well-formed.
type l4Matcher struct {
	destinationSubnet *net.IPNet
	sourceSubnet      *net.IPNet
	port              *rules.PortSelector
	sourceLabels      map[string]string
	gateways          []string
}

func compileL4Match(m *rules.L4MatchAttributes) *l4Matcher {
	out := &l4Matcher{
		port:         m.Port,
		sourceLabels: m.SourceLabels,
		gateways:     m.Gateways,
	}
	if m.DestinationSubnet != "" {
		_, out.destinationSubnet, _ = net.ParseCIDR(m.DestinationSubnet)
	}
	if m.SourceSubnet != "" {
		_, out.sourceSubnet, _ = net.ParseCIDR(m.SourceSubnet)
	}
	return out
}

func (m *l4Matcher) matches(ctx *ConnectionContext) bool {
	if m.destinationSubnet != nil && !subnetContains(m.destinationSubnet, ctx.DestinationAddr) {
		return false
	}
	if m.sourceSubnet != nil && !subnetContains(m.sourceSubnet, ctx.SourceAddr) {
		return false
	}
	if m.port != nil && !portMatches(m.port, ctx.PortName, ctx.Port) {
		return false
	}
	if !labelsMatch(m.sourceLabels, ctx.SourceLabels) {
		return false
	}
	if len(m.gateways) > 0 && !gatewayMatches(m.gateways, ctx.Gateways) {
		return false
	}
	return true
}

// portMatches compares by name first, then by number. PortSelector is a
// oneof, so exactly one comparison applies.
func portMatches(sel *rules.PortSelector, portName string, port uint32) bool {
	if sel.Name != "" {
		return sel.Name == portName
	}
	return sel.Number == port
}

// labelsMatch requires every wanted label to be present with the same
// value; a missing label fails the block.
func labelsMatch(wanted, got map[string]string) bool {
	for key, value := range wanted {
		if got[key] != value {
			return false
		}
	}
	return true
}

// gatewayMatches succeeds when any of the block's gateways is among the
// gateways the request arrived through.
func gatewayMatches(wanted, got []string) bool {
	for _, w := range wanted {
		for _, g := range got {
			if w == g {
				return true
			}
		}
	}
	return false
}

func subnetContains(subnet *net.IPNet, addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return subnet.Contains(ip)
}
