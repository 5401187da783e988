package engine

import (
	"sort"
	"sync/atomic"

	"mesh-router/internal/rules"
)

// Snapshot is an immutable, compiled view of one rule set. Matchers are
// precompiled so the per-request path does no regex or CIDR parsing.
// Snapshots are shared across request goroutines without locking.
type Snapshot struct {
	version uint64
	byHost  map[string]*CompiledRule
	ruleqty int
}

// CompiledRule pairs a RouteRule with its precompiled match blocks,
// preserving declaration order of both routes and blocks.
type CompiledRule struct {
	Rule *rules.RouteRule
	http []*compiledHTTPRoute
	tcp  []*compiledTCPRoute
}

type compiledHTTPRoute struct {
	route    *rules.HTTPRoute
	matchers []*httpMatcher
}

type compiledTCPRoute struct {
	route    *rules.TCPRoute
	matchers []*l4Matcher
}

func compile(set *rules.RuleSet, version uint64) *Snapshot {
	snap := &Snapshot{
		version: version,
		byHost:  make(map[string]*CompiledRule),
	}
	if set == nil {
		return snap
	}

	snap.ruleqty = len(set.Rules)
	for _, rule := range set.Rules {
		compiled := &CompiledRule{Rule: rule}
		for _, route := range rule.HTTP {
			cr := &compiledHTTPRoute{route: route}
			for _, match := range route.Match {
				cr.matchers = append(cr.matchers, compileHTTPMatch(match))
			}
			compiled.http = append(compiled.http, cr)
		}
		for _, route := range rule.TCP {
			cr := &compiledTCPRoute{route: route}
			for _, match := range route.Match {
				cr.matchers = append(cr.matchers, compileL4Match(match))
			}
			compiled.tcp = append(compiled.tcp, cr)
		}
		// Host uniqueness is guaranteed by rules.Validate.
		for _, host := range rule.Hosts {
			snap.byHost[host] = compiled
		}
	}

	return snap
}

// Version identifies the snapshot; it increases with every swap.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// RuleCount returns the number of rules in the snapshot.
func (s *Snapshot) RuleCount() int {
	return s.ruleqty
}

// Hosts returns the sorted list of hosts governed by the snapshot.
func (s *Snapshot) Hosts() []string {
	hosts := make([]string, 0, len(s.byHost))
	for host := range s.byHost {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// RuleFor returns the rule governing a host, if any.
func (s *Snapshot) RuleFor(host string) (*CompiledRule, bool) {
	rule, ok := s.byHost[host]
	return rule, ok
}

// Store holds the current snapshot behind an atomic pointer. Readers
// always observe an entirely-old or entirely-new rule set, never a mix;
// Swap is the only mutation point.
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewStore creates a store primed with an empty snapshot so readers
// never observe nil.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(compile(nil, 0))
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap compiles a validated rule set and atomically replaces the
// current snapshot. The caller must have run rules.Validate; Swap never
// fails and never leaves the store in a partial state.
func (s *Store) Swap(set *rules.RuleSet) *Snapshot {
	snap := compile(set, s.version.Add(1))
	s.current.Store(snap)
	return snap
}
