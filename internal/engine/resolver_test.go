package engine

import (
	"math/rand"
	"testing"
	"time"

	"mesh-router/internal/rules"
)

func newTestResolver(set *rules.RuleSet, seed int64) *Resolver {
	store := NewStore()
	if set != nil {
		store.Swap(set)
	}
	return &Resolver{store: store, rng: rand.New(rand.NewSource(seed))}
}

// Two prefix blocks OR'd on one route, 100% to reviews version v2.
func TestResolve_CatalogPrefixesToV2(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "reviews-catalog",
		Hosts: []string{"reviews"},
		HTTP: []*rules.HTTPRoute{{
			Match: []*rules.HTTPMatchRequest{
				{URI: &rules.StringMatch{Prefix: "/wpcatalog"}},
				{URI: &rules.StringMatch{Prefix: "/consumercatalog"}},
			},
			Route: []*rules.DestinationWeight{{
				Destination: &rules.Destination{Name: "reviews", Labels: map[string]string{"version": "v2"}},
				Weight:      100,
			}},
		}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/wpcatalog/x", Method: "GET", Authority: "reviews"})

	if action.Type != ActionForward {
		t.Fatalf("action type = %v, want forward", action.Type)
	}
	if action.Destination.Name != "reviews" || action.Destination.Labels["version"] != "v2" {
		t.Errorf("resolved to %+v, want reviews{version:v2}", action.Destination)
	}
	if action.URI != "/wpcatalog/x" {
		t.Errorf("URI = %q, want unchanged without a rewrite", action.URI)
	}
}

// Catch-all route splitting 25/75; over 10k draws v1 lands in 7400-7600.
func TestResolve_WeightedSplit(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "reviews-split",
		Hosts: []string{"reviews"},
		HTTP: []*rules.HTTPRoute{{
			Route: []*rules.DestinationWeight{
				{Destination: dest("reviews", "v2"), Weight: 25},
				{Destination: dest("reviews", "v1"), Weight: 75},
			},
		}},
	}}}

	r := newTestResolver(set, 42)
	ctx := &RequestContext{URI: "/", Method: "GET", Authority: "reviews"}

	const draws = 10000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		action := r.Resolve(ctx)
		if action.Type != ActionForward {
			t.Fatalf("draw %d: action type = %v, want forward", i, action.Type)
		}
		counts[action.Destination.Labels["version"]]++
	}

	if got := counts["v1"]; got < 7400 || got > 7600 {
		t.Errorf("v1 chosen %d times over %d draws, want 7400-7600", got, draws)
	}
}

// Abort fault at 10% with status 400, independent of the delay spec.
func TestResolve_AbortSampling(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "ratings-fault",
		Hosts: []string{"ratings"},
		HTTP: []*rules.HTTPRoute{{
			Route: singleDest("ratings", "v1"),
			Fault: &rules.HTTPFaultInjection{
				Abort: &rules.FaultAbort{Percent: intp(10), HTTPStatus: 400},
				Delay: &rules.FaultDelay{Percent: intp(50), FixedDelay: rules.Duration(10 * time.Millisecond)},
			},
		}},
	}}}

	r := newTestResolver(set, 7)
	ctx := &RequestContext{URI: "/ratings", Method: "GET", Authority: "ratings"}

	const draws = 10000
	aborted, delayed := 0, 0
	for i := 0; i < draws; i++ {
		action := r.Resolve(ctx)
		switch action.Type {
		case ActionAbort:
			aborted++
			if action.AbortStatus != 400 {
				t.Fatalf("abort status = %d, want 400", action.AbortStatus)
			}
			if action.Destination != nil {
				t.Fatal("aborted request must not select a destination")
			}
		case ActionForward:
			if action.Destination == nil {
				t.Fatal("forward without destination")
			}
		default:
			t.Fatalf("unexpected action type %v", action.Type)
		}
		if action.Delay > 0 {
			delayed++
		}
	}

	if aborted < 900 || aborted > 1100 {
		t.Errorf("abort fired %d times over %d draws, want roughly 1000", aborted, draws)
	}
	if delayed < 4800 || delayed > 5200 {
		t.Errorf("delay fired %d times over %d draws, want roughly 5000 (independent of abort)", delayed, draws)
	}
}

func TestResolve_RedirectShortCircuits(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "moved",
		Hosts: []string{"legacy"},
		HTTP: []*rules.HTTPRoute{{
			Match:    []*rules.HTTPMatchRequest{{URI: &rules.StringMatch{Prefix: "/old"}}},
			Redirect: &rules.HTTPRedirect{URI: "/new", Authority: "modern"},
			// A fault spec next to a redirect must never fire.
			Fault: &rules.HTTPFaultInjection{
				Abort: &rules.FaultAbort{Percent: intp(100), HTTPStatus: 500},
			},
		}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/old/page", Authority: "legacy"})

	if action.Type != ActionRedirect {
		t.Fatalf("action type = %v, want redirect", action.Type)
	}
	if action.RedirectURI != "/new" || action.RedirectAuthority != "modern" {
		t.Errorf("redirect = (%q, %q), want (/new, modern)", action.RedirectURI, action.RedirectAuthority)
	}
	if action.Destination != nil || action.AbortStatus != 0 {
		t.Error("redirect must skip fault injection and destination selection")
	}
}

func TestResolve_RedirectKeepsUnsetFields(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "authority-only",
		Hosts: []string{"legacy"},
		HTTP: []*rules.HTTPRoute{{
			Redirect: &rules.HTTPRedirect{Authority: "modern"},
		}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/keep/me", Authority: "legacy"})

	if action.RedirectURI != "/keep/me" {
		t.Errorf("redirect URI = %q, want the original URI preserved", action.RedirectURI)
	}
	if action.RedirectAuthority != "modern" {
		t.Errorf("redirect authority = %q, want modern", action.RedirectAuthority)
	}
}

func TestResolve_RewriteSubstitutesMatchedPrefix(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "catalog-rewrite",
		Hosts: []string{"reviews"},
		HTTP: []*rules.HTTPRoute{{
			Match: []*rules.HTTPMatchRequest{
				{URI: &rules.StringMatch{Prefix: "/wpcatalog"}},
			},
			Rewrite: &rules.HTTPRewrite{URI: "/newcatalog", Authority: "reviews-internal"},
			Route:   singleDest("reviews", "v2"),
		}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/wpcatalog/items/7", Authority: "reviews"})

	if action.URI != "/newcatalog/items/7" {
		t.Errorf("rewritten URI = %q, want /newcatalog/items/7", action.URI)
	}
	if action.Authority != "reviews-internal" {
		t.Errorf("rewritten authority = %q, want reviews-internal", action.Authority)
	}
}

func TestResolve_RewriteWholePathOnNonPrefixMatch(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "exact-rewrite",
		Hosts: []string{"svc"},
		HTTP: []*rules.HTTPRoute{{
			Match:   []*rules.HTTPMatchRequest{{Method: &rules.StringMatch{Exact: "GET"}}},
			Rewrite: &rules.HTTPRewrite{URI: "/canonical"},
			Route:   singleDest("svc", "v1"),
		}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/whatever/path", Method: "GET", Authority: "svc"})

	if action.URI != "/canonical" {
		t.Errorf("rewritten URI = %q, want whole-path replacement /canonical", action.URI)
	}
}

func TestResolve_Directives(t *testing.T) {
	mirror := &rules.Destination{Name: "reviews-shadow"}
	retries := &rules.HTTPRetry{Attempts: 3, PerTryTimeout: rules.Duration(2 * time.Second)}
	cors := &rules.CorsPolicy{AllowOrigin: []string{"*"}}

	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "full-route",
		Hosts: []string{"reviews"},
		HTTP: []*rules.HTTPRoute{{
			Route:         singleDest("reviews", "v1"),
			Timeout:       rules.Duration(10 * time.Second),
			Retries:       retries,
			Mirror:        mirror,
			CorsPolicy:    cors,
			AppendHeaders: map[string]string{"x-env": "staging"},
		}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/", Authority: "reviews"})

	if action.Mirror != mirror {
		t.Error("mirror directive not attached")
	}
	if action.Retries != retries {
		t.Error("retry policy not attached")
	}
	if action.Cors != cors {
		t.Error("CORS policy not attached")
	}
	if action.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", action.Timeout)
	}
	if action.AppendHeaders["x-env"] != "staging" {
		t.Errorf("appendHeaders = %v, want x-env:staging", action.AppendHeaders)
	}
}

func TestResolve_NoRuleForHost(t *testing.T) {
	r := newTestResolver(nil, 1)
	action := r.Resolve(&RequestContext{URI: "/", Authority: "unknown"})
	if action.Type != ActionNoRoute {
		t.Errorf("action type = %v, want noRoute", action.Type)
	}
}

func TestResolve_AuthorityPortStripped(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "by-host",
		Hosts: []string{"reviews"},
		HTTP:  []*rules.HTTPRoute{{Route: singleDest("reviews", "v1")}},
	}}}

	r := newTestResolver(set, 1)
	action := r.Resolve(&RequestContext{URI: "/", Authority: "reviews:8080"})
	if action.Type != ActionForward {
		t.Errorf("authority with port should resolve against host %q", "reviews")
	}
}

func TestResolveTCP(t *testing.T) {
	set := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name:  "mongo",
		Hosts: []string{"mongo.prod"},
		TCP: []*rules.TCPRoute{{
			Match: []*rules.L4MatchAttributes{{DestinationSubnet: "10.0.0.0/8"}},
			Route: singleDest("mongo", "primary"),
		}},
	}}}

	r := newTestResolver(set, 1)

	action := r.ResolveTCP(&ConnectionContext{DestinationHost: "mongo.prod", DestinationAddr: "10.1.1.1"})
	if action.Type != ActionForward || action.Destination.Name != "mongo" {
		t.Errorf("in-subnet connection should forward to mongo, got %+v", action)
	}

	action = r.ResolveTCP(&ConnectionContext{DestinationHost: "mongo.prod", DestinationAddr: "172.16.1.1"})
	if action.Type != ActionNoRoute {
		t.Errorf("out-of-subnet connection should yield noRoute, got %v", action.Type)
	}
}

func TestStore_SwapIsAtomic(t *testing.T) {
	store := NewStore()

	v1 := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name: "a", Hosts: []string{"a"},
		HTTP: []*rules.HTTPRoute{{Route: singleDest("a", "v1")}},
	}}}
	v2 := &rules.RuleSet{Rules: []*rules.RouteRule{{
		Name: "b", Hosts: []string{"b"},
		HTTP: []*rules.HTTPRoute{{Route: singleDest("b", "v1")}},
	}}}

	first := store.Swap(v1)
	second := store.Swap(v2)

	if second.Version() <= first.Version() {
		t.Errorf("versions must increase: %d then %d", first.Version(), second.Version())
	}

	// The old snapshot remains fully usable after the swap: a reader
	// holding it sees the entirely-old set, never a mix.
	if _, ok := first.RuleFor("a"); !ok {
		t.Error("old snapshot lost its rule after swap")
	}
	if _, ok := first.RuleFor("b"); ok {
		t.Error("old snapshot sees the new rule set")
	}
	if _, ok := store.Snapshot().RuleFor("b"); !ok {
		t.Error("current snapshot missing the new rule")
	}
	if _, ok := store.Snapshot().RuleFor("a"); ok {
		t.Error("current snapshot still sees the old rule set")
	}
}

func TestStore_StartsEmpty(t *testing.T) {
	store := NewStore()
	snap := store.Snapshot()
	if snap == nil {
		t.Fatal("new store must expose an empty snapshot, not nil")
	}
	if snap.RuleCount() != 0 || len(snap.Hosts()) != 0 {
		t.Errorf("empty snapshot has %d rules and hosts %v", snap.RuleCount(), snap.Hosts())
	}
}
