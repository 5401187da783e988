// Package engine implements the route-rule matching and selection
// engine: given an immutable rule-set snapshot and a per-request
// attribute context, it decides which match block applies and computes
// the resolved action — weighted forward, redirect, rewrite, fault
// injection, mirroring.
//
// The engine is organized around a few small pieces:
//
//   - stringMatcher: exact/prefix/regex evaluation, precompiled per
//     snapshot; an unparsable regex fails closed instead of erroring.
//   - httpMatcher / l4Matcher: conjunctive evaluation of one match
//     block against a RequestContext or ConnectionContext.
//   - selectHTTP / selectTCP: first-match-wins over the ordered route
//     list, OR semantics across a route's blocks.
//   - pickDestination: cumulative-weight selection over [0, total).
//   - shouldDelay / shouldAbort: independent percentage-sampled fault
//     decisions.
//   - Resolver: orchestrates the above into one ResolvedAction per
//     request.
//
// All evaluation is stateless and side-effect-free given a Snapshot;
// the Store swaps snapshots atomically so concurrent readers never
// observe a partially updated rule set. Randomness is the only
// non-deterministic input.
//
// Example:
//
//	store := engine.NewStore()
//	store.Swap(ruleSet) // already validated by rules.Validate
//
//	resolver := engine.NewResolver(store)
//	action := resolver.Resolve(&engine.RequestContext{
//		Method:    "GET",
//		URI:       "/wpcatalog/items",
//		Authority: "reviews",
//	})
//
//	switch action.Type {
//	case engine.ActionForward:
//		// forward to action.Destination with action.URI/Authority
//	case engine.ActionRedirect:
//		// emit a 302 to action.RedirectURI
//	case engine.ActionAbort:
//		// fail the request with action.AbortStatus
//	case engine.ActionNoRoute:
//		// caller-defined fallback
//	}
package engine
