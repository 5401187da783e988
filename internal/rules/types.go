// Package rules defines the traffic-routing rule model consumed by the
// matching engine, together with its load-time validation and YAML loader.
//
// A rule set is an ordered collection of route rules. Each rule governs
// one or more hosts and carries ordered HTTP and TCP route lists. Within
// a route, the match blocks have OR semantics while the fields inside a
// single block have AND semantics. Rules are immutable once loaded; a
// config update replaces the whole set atomically.
package rules

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleSet is the unit of configuration handed to the engine. It is
// replaced wholesale on every update; individual rules are never
// mutated in place.
type RuleSet struct {
	Rules []*RouteRule `json:"rules" yaml:"rules"`
}

// RouteRule describes traffic routing for a set of hosts. A given host
// is governed by exactly one rule; duplicate hosts across rules are
// rejected at validation time.
type RouteRule struct {
	Name     string       `json:"name" yaml:"name"`                             // Unique rule name
	Hosts    []string     `json:"hosts" yaml:"hosts"`                           // Hosts governed by this rule
	Gateways []string     `json:"gateways,omitempty" yaml:"gateways,omitempty"` // Gateways the rule applies to
	HTTP     []*HTTPRoute `json:"http,omitempty" yaml:"http,omitempty"`         // Ordered HTTP route list
	TCP      []*TCPRoute  `json:"tcp,omitempty" yaml:"tcp,omitempty"`           // Ordered TCP route list
}

// HTTPRoute pairs an ordered list of match blocks with a routing action.
// A route either redirects or forwards; redirect is mutually exclusive
// with route and rewrite. An empty match list is an implicit catch-all.
type HTTPRoute struct {
	Match         []*HTTPMatchRequest  `json:"match,omitempty" yaml:"match,omitempty"`
	Route         []*DestinationWeight `json:"route,omitempty" yaml:"route,omitempty"`
	Redirect      *HTTPRedirect        `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Rewrite       *HTTPRewrite         `json:"rewrite,omitempty" yaml:"rewrite,omitempty"`
	Timeout       Duration             `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries       *HTTPRetry           `json:"retries,omitempty" yaml:"retries,omitempty"`
	Fault         *HTTPFaultInjection  `json:"fault,omitempty" yaml:"fault,omitempty"`
	Mirror        *Destination         `json:"mirror,omitempty" yaml:"mirror,omitempty"`
	CorsPolicy    *CorsPolicy          `json:"corsPolicy,omitempty" yaml:"corsPolicy,omitempty"`
	AppendHeaders map[string]string    `json:"appendHeaders,omitempty" yaml:"appendHeaders,omitempty"`
}

// HTTPMatchRequest is a single match block. All populated fields are
// AND'd; an unset field contributes no constraint. A block listed in a
// route must have at least one populated field (the catch-all is an
// empty match list, not an empty block).
type HTTPMatchRequest struct {
	URI          *StringMatch            `json:"uri,omitempty" yaml:"uri,omitempty"`
	Scheme       *StringMatch            `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Method       *StringMatch            `json:"method,omitempty" yaml:"method,omitempty"`
	Authority    *StringMatch            `json:"authority,omitempty" yaml:"authority,omitempty"`
	Headers      map[string]*StringMatch `json:"headers,omitempty" yaml:"headers,omitempty"`
	Port         *PortSelector           `json:"port,omitempty" yaml:"port,omitempty"`
	SourceLabels map[string]string       `json:"sourceLabels,omitempty" yaml:"sourceLabels,omitempty"`
	Gateways     []string                `json:"gateways,omitempty" yaml:"gateways,omitempty"`
}

// StringMatch selects exactly one of exact, prefix or regex matching.
// Exclusivity is checked at validation time; the engine compiles each
// variant into its own matcher.
type StringMatch struct {
	Exact  string `json:"exact,omitempty" yaml:"exact,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Regex  string `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// variantCount returns how many of the oneof variants are populated.
func (m *StringMatch) variantCount() int {
	n := 0
	if m.Exact != "" {
		n++
	}
	if m.Prefix != "" {
		n++
	}
	if m.Regex != "" {
		n++
	}
	return n
}

// PortSelector names a port either by number or by name, never both.
type PortSelector struct {
	Number uint32 `json:"number,omitempty" yaml:"number,omitempty"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Destination is a resolved forwarding target: a service name plus an
// optional label subset identifying a version, and an optional port.
type Destination struct {
	Name   string            `json:"name" yaml:"name"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Port   *PortSelector     `json:"port,omitempty" yaml:"port,omitempty"`
}

// DestinationWeight assigns a share of traffic to a destination.
// Weights across a route must sum to 100; a single-entry list defaults
// to 100 implicitly (its stated weight is ignored).
type DestinationWeight struct {
	Destination *Destination `json:"destination" yaml:"destination"`
	Weight      int          `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// HTTPRedirect sends a 302 with the URI and/or Authority replaced.
// Unset fields keep the request's original value.
type HTTPRedirect struct {
	URI       string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Authority string `json:"authority,omitempty" yaml:"authority,omitempty"`
}

// HTTPRewrite rewrites the URI prefix and/or Authority header before
// forwarding. Cannot be combined with a redirect.
type HTTPRewrite struct {
	URI       string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Authority string `json:"authority,omitempty" yaml:"authority,omitempty"`
}

// HTTPRetry is a retry directive emitted for the data plane.
type HTTPRetry struct {
	Attempts      int      `json:"attempts" yaml:"attempts"`
	PerTryTimeout Duration `json:"perTryTimeout,omitempty" yaml:"perTryTimeout,omitempty"`
}

// CorsPolicy is passed through to the data plane unmodified.
type CorsPolicy struct {
	AllowOrigin      []string `json:"allowOrigin,omitempty" yaml:"allowOrigin,omitempty"`
	AllowMethods     []string `json:"allowMethods,omitempty" yaml:"allowMethods,omitempty"`
	AllowHeaders     []string `json:"allowHeaders,omitempty" yaml:"allowHeaders,omitempty"`
	ExposeHeaders    []string `json:"exposeHeaders,omitempty" yaml:"exposeHeaders,omitempty"`
	MaxAge           Duration `json:"maxAge,omitempty" yaml:"maxAge,omitempty"`
	AllowCredentials bool     `json:"allowCredentials,omitempty" yaml:"allowCredentials,omitempty"`
}

// HTTPFaultInjection injects delays and/or aborts into a percentage of
// requests. Delay and abort are sampled independently; both may fire on
// the same request.
type HTTPFaultInjection struct {
	Delay *FaultDelay `json:"delay,omitempty" yaml:"delay,omitempty"`
	Abort *FaultAbort `json:"abort,omitempty" yaml:"abort,omitempty"`
}

// FaultDelay holds a sampling percentage and exactly one delay shape.
// An omitted percent means 100.
type FaultDelay struct {
	Percent          *int     `json:"percent,omitempty" yaml:"percent,omitempty"`
	FixedDelay       Duration `json:"fixedDelay,omitempty" yaml:"fixedDelay,omitempty"`
	ExponentialDelay Duration `json:"exponentialDelay,omitempty" yaml:"exponentialDelay,omitempty"`
}

// Percentage returns the sampling percentage, defaulting to 100 when omitted.
func (d *FaultDelay) Percentage() int {
	if d.Percent == nil {
		return 100
	}
	return *d.Percent
}

// FaultAbort holds a sampling percentage and exactly one error shape.
// An omitted percent means 100. GRPCStatus and HTTP2Error are accepted
// in configuration but not enforced by the engine.
type FaultAbort struct {
	Percent    *int   `json:"percent,omitempty" yaml:"percent,omitempty"`
	HTTPStatus int    `json:"httpStatus,omitempty" yaml:"httpStatus,omitempty"`
	GRPCStatus string `json:"grpcStatus,omitempty" yaml:"grpcStatus,omitempty"`
	HTTP2Error string `json:"http2Error,omitempty" yaml:"http2Error,omitempty"`
}

// Percentage returns the sampling percentage, defaulting to 100 when omitted.
func (a *FaultAbort) Percentage() int {
	if a.Percent == nil {
		return 100
	}
	return *a.Percent
}

// TCPRoute pairs L4 match blocks with weighted destinations.
type TCPRoute struct {
	Match []*L4MatchAttributes `json:"match,omitempty" yaml:"match,omitempty"`
	Route []*DestinationWeight `json:"route,omitempty" yaml:"route,omitempty"`
}

// L4MatchAttributes is the TCP-side match block. Subnets use CIDR
// notation and are validated at load time.
type L4MatchAttributes struct {
	DestinationSubnet string            `json:"destinationSubnet,omitempty" yaml:"destinationSubnet,omitempty"`
	SourceSubnet      string            `json:"sourceSubnet,omitempty" yaml:"sourceSubnet,omitempty"`
	Port              *PortSelector     `json:"port,omitempty" yaml:"port,omitempty"`
	SourceLabels      map[string]string `json:"sourceLabels,omitempty" yaml:"sourceLabels,omitempty"`
	Gateways          []string          `json:"gateways,omitempty" yaml:"gateways,omitempty"`
}

// Duration wraps time.Duration so rule documents can use human-readable
// values like "5s" or "250ms" in both YAML and JSON.
type Duration time.Duration

// Value returns the wrapped time.Duration.
func (d Duration) Value() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML parses a duration string such as "5s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON parses a quoted duration string such as "5s".
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("duration must be a string like \"5s\", got %s", data)
	}
	parsed, err := time.ParseDuration(string(data[1 : len(data)-1]))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", data, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration as a quoted string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
