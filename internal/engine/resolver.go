package engine

import (
	"strings"
	"time"

	"mesh-router/internal/rules"
)

// ActionType classifies the outcome of one resolution.
type ActionType int

const (
	// ActionNoRoute means no rule governs the host or no route matched.
	// This is a defined outcome, not an error; the caller decides the
	// fallback, typically a not-found response.
	ActionNoRoute ActionType = iota
	// ActionForward carries a picked destination and final request attributes.
	ActionForward
	// ActionRedirect short-circuits everything else.
	ActionRedirect
	// ActionAbort is an injected fault; no destination is selected.
	ActionAbort
)

// String returns the wire name of the action type.
func (t ActionType) String() string {
	switch t {
	case ActionForward:
		return "forward"
	case ActionRedirect:
		return "redirect"
	case ActionAbort:
		return "abort"
	default:
		return "noRoute"
	}
}

// MarshalJSON renders the action type as its wire name.
func (t ActionType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// ResolvedAction is the complete routing decision for one request: the
// primary forward/redirect/abort outcome plus the side-channel
// directives (mirror, appended headers, retry policy, timeout, CORS)
// the data plane applies. The engine emits directives; it never
// enforces them.
type ResolvedAction struct {
	Type ActionType `json:"type"`

	// Forward outcome: destination and final (post-rewrite) attributes.
	Destination *rules.Destination `json:"destination,omitempty"`
	URI         string             `json:"uri,omitempty"`
	Authority   string             `json:"authority,omitempty"`

	// Redirect outcome.
	RedirectURI       string `json:"redirectUri,omitempty"`
	RedirectAuthority string `json:"redirectAuthority,omitempty"`

	// Abort outcome.
	AbortStatus int `json:"abortStatus,omitempty"`

	// Side-channel directives.
	Delay         time.Duration      `json:"delayNanos,omitempty"`
	Mirror        *rules.Destination `json:"mirror,omitempty"`
	AppendHeaders map[string]string  `json:"appendHeaders,omitempty"`
	Retries       *rules.HTTPRetry   `json:"retries,omitempty"`
	Timeout       time.Duration      `json:"timeoutNanos,omitempty"`
	Cors          *rules.CorsPolicy  `json:"corsPolicy,omitempty"`
}

// Resolver evaluates requests against the store's current snapshot.
// Resolution is stateless and side-effect-free given a snapshot, so a
// single Resolver serves arbitrarily many goroutines.
type Resolver struct {
	store *Store
	rng   randSource
}

// NewResolver creates a resolver bound to a snapshot store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store, rng: globalRand{}}
}

// Resolve computes the routing decision for one HTTP request against
// the current snapshot. The governing rule is looked up by the
// request's authority (host portion, port stripped).
func (r *Resolver) Resolve(ctx *RequestContext) *ResolvedAction {
	snap := r.store.Snapshot()
	rule, ok := snap.RuleFor(hostOf(ctx.Authority))
	if !ok {
		return &ResolvedAction{Type: ActionNoRoute}
	}
	return r.ResolveRule(rule, ctx)
}

// ResolveRule computes the routing decision for a request under a
// specific rule. Steps, in order: select the active route
// (first-match-wins); redirect short-circuits everything; an abort
// fault returns immediately without picking a destination; a delay
// fault attaches delay metadata; the weighted pick chooses the
// destination; the rewrite produces the final request attributes;
// mirror, appended headers, retries, timeout and CORS ride along as
// directives.
func (r *Resolver) ResolveRule(rule *CompiledRule, ctx *RequestContext) *ResolvedAction {
	route, block, ok := rule.selectHTTP(ctx)
	if !ok {
		return &ResolvedAction{Type: ActionNoRoute}
	}
	spec := route.route

	if redirect := spec.Redirect; redirect != nil {
		action := &ResolvedAction{
			Type:              ActionRedirect,
			RedirectURI:       ctx.URI,
			RedirectAuthority: ctx.Authority,
		}
		if redirect.URI != "" {
			action.RedirectURI = redirect.URI
		}
		if redirect.Authority != "" {
			action.RedirectAuthority = redirect.Authority
		}
		return action
	}

	// Delay and abort are independent draws; both may fire on the same
	// request. An abort drops the request before destination selection,
	// after any delay has been recorded.
	var delay time.Duration
	if fault := spec.Fault; fault != nil {
		delay, _ = shouldDelay(fault.Delay, r.rng)
		if status, aborted := shouldAbort(fault.Abort, r.rng); aborted {
			return &ResolvedAction{Type: ActionAbort, AbortStatus: status, Delay: delay}
		}
	}

	action := &ResolvedAction{
		Type:          ActionForward,
		Destination:   pickDestination(spec.Route, r.rng),
		URI:           ctx.URI,
		Authority:     ctx.Authority,
		Delay:         delay,
		Mirror:        spec.Mirror,
		AppendHeaders: spec.AppendHeaders,
		Retries:       spec.Retries,
		Timeout:       spec.Timeout.Value(),
		Cors:          spec.CorsPolicy,
	}

	if rewrite := spec.Rewrite; rewrite != nil {
		action.URI = rewriteURI(ctx.URI, block, rewrite.URI)
		if rewrite.Authority != "" {
			action.Authority = rewrite.Authority
		}
	}

	return action
}

// ResolveTCP computes the routing decision for one TCP connection.
// The governing rule is looked up by the connection's destination host.
func (r *Resolver) ResolveTCP(ctx *ConnectionContext) *ResolvedAction {
	snap := r.store.Snapshot()
	rule, ok := snap.RuleFor(ctx.DestinationHost)
	if !ok {
		return &ResolvedAction{Type: ActionNoRoute}
	}

	route, matched := rule.selectTCP(ctx)
	if !matched {
		return &ResolvedAction{Type: ActionNoRoute}
	}

	return &ResolvedAction{
		Type:        ActionForward,
		Destination: pickDestination(route.route.Route, r.rng),
	}
}

// rewriteURI substitutes the matched URI prefix when the activating
// block matched by prefix, otherwise replaces the whole path.
func rewriteURI(uri string, block *httpMatcher, rewrite string) string {
	if rewrite == "" {
		return uri
	}
	if block != nil && block.uriPrefix != "" && strings.HasPrefix(uri, block.uriPrefix) {
		return rewrite + strings.TrimPrefix(uri, block.uriPrefix)
	}
	return rewrite
}

// hostOf strips an optional port from an authority value.
func hostOf(authority string) string {
	if i := strings.LastIndex(authority, ":"); i > 0 && !strings.Contains(authority[i+1:], "]") {
		return authority[:i]
	}
	return authority
}
