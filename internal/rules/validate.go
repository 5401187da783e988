package rules

import (
	"fmt"
	"net"
)

// ValidationError describes a rejected rule document. A set that fails
// validation is rejected entirely; the previously loaded snapshot stays
// active.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// Validate checks the whole rule set against the load-time invariants:
// oneof exclusivity, weight sums, redirect/route mutual exclusion,
// non-empty match blocks, host uniqueness and CIDR syntax. Regex
// patterns are deliberately not validated here; an unparsable pattern
// fails closed at evaluation time instead of rejecting the set.
func Validate(set *RuleSet) error {
	if set == nil || len(set.Rules) == 0 {
		return ValidationError{Field: "rules", Message: "rule set must contain at least one rule"}
	}

	seenNames := make(map[string]bool)
	seenHosts := make(map[string]string)

	for i, rule := range set.Rules {
		if rule == nil {
			return ValidationError{Field: fmt.Sprintf("rules[%d]", i), Message: "rule must not be null"}
		}
		if err := validateRule(rule, seenNames, seenHosts); err != nil {
			return fmt.Errorf("rule %q: %w", ruleLabel(rule, i), err)
		}
	}

	return nil
}

func ruleLabel(rule *RouteRule, index int) string {
	if rule.Name != "" {
		return rule.Name
	}
	return fmt.Sprintf("#%d", index)
}

func validateRule(rule *RouteRule, seenNames map[string]bool, seenHosts map[string]string) error {
	if rule.Name == "" {
		return ValidationError{Field: "name", Message: "is required"}
	}
	if seenNames[rule.Name] {
		return ValidationError{Field: "name", Message: "duplicates another rule's name"}
	}
	seenNames[rule.Name] = true

	if len(rule.Hosts) == 0 {
		return ValidationError{Field: "hosts", Message: "must list at least one host"}
	}
	for _, host := range rule.Hosts {
		if host == "" {
			return ValidationError{Field: "hosts", Message: "host must not be empty"}
		}
		if owner, taken := seenHosts[host]; taken {
			return ValidationError{Field: "hosts", Message: fmt.Sprintf("host %q is already governed by rule %q", host, owner)}
		}
		seenHosts[host] = rule.Name
	}

	if len(rule.HTTP) == 0 && len(rule.TCP) == 0 {
		return ValidationError{Field: "http", Message: "rule must define at least one HTTP or TCP route"}
	}

	for i, route := range rule.HTTP {
		if err := validateHTTPRoute(route); err != nil {
			return fmt.Errorf("http[%d]: %w", i, err)
		}
	}
	for i, route := range rule.TCP {
		if err := validateTCPRoute(route); err != nil {
			return fmt.Errorf("tcp[%d]: %w", i, err)
		}
	}

	return nil
}

func validateHTTPRoute(route *HTTPRoute) error {
	if route == nil {
		return ValidationError{Field: "route", Message: "route must not be null"}
	}

	if route.Redirect != nil {
		if len(route.Route) > 0 {
			return ValidationError{Field: "redirect", Message: "cannot be combined with route"}
		}
		if route.Rewrite != nil {
			return ValidationError{Field: "redirect", Message: "cannot be combined with rewrite"}
		}
		if route.Redirect.URI == "" && route.Redirect.Authority == "" {
			return ValidationError{Field: "redirect", Message: "must set uri or authority"}
		}
	} else if len(route.Route) == 0 {
		return ValidationError{Field: "route", Message: "must list at least one destination or a redirect"}
	}

	if err := validateDestinationWeights(route.Route); err != nil {
		return err
	}

	for i, match := range route.Match {
		if err := validateHTTPMatch(match); err != nil {
			return fmt.Errorf("match[%d]: %w", i, err)
		}
	}

	if route.Mirror != nil {
		if err := validateDestination(route.Mirror); err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
	}

	if route.Retries != nil && route.Retries.Attempts < 0 {
		return ValidationError{Field: "retries.attempts", Message: "must be non-negative"}
	}

	if route.Fault != nil {
		if err := validateFault(route.Fault); err != nil {
			return fmt.Errorf("fault: %w", err)
		}
	}

	return nil
}

func validateTCPRoute(route *TCPRoute) error {
	if route == nil {
		return ValidationError{Field: "route", Message: "route must not be null"}
	}
	if len(route.Route) == 0 {
		return ValidationError{Field: "route", Message: "must list at least one destination"}
	}
	if err := validateDestinationWeights(route.Route); err != nil {
		return err
	}
	for i, match := range route.Match {
		if err := validateL4Match(match); err != nil {
			return fmt.Errorf("match[%d]: %w", i, err)
		}
	}
	return nil
}

// validateDestinationWeights enforces the 0-100 range per entry and the
// sum-to-100 invariant for multi-entry lists. A single-entry list keeps
// whatever weight it states; the picker treats it as 100.
func validateDestinationWeights(dests []*DestinationWeight) error {
	sum := 0
	for i, dw := range dests {
		if dw == nil || dw.Destination == nil {
			return ValidationError{Field: fmt.Sprintf("route[%d].destination", i), Message: "is required"}
		}
		if err := validateDestination(dw.Destination); err != nil {
			return fmt.Errorf("route[%d]: %w", i, err)
		}
		if dw.Weight < 0 || dw.Weight > 100 {
			return ValidationError{Field: fmt.Sprintf("route[%d].weight", i), Message: "must be between 0 and 100"}
		}
		sum += dw.Weight
	}
	if len(dests) > 1 && sum != 100 {
		return ValidationError{Field: "route", Message: fmt.Sprintf("weights must sum to 100, got %d", sum)}
	}
	return nil
}

func validateDestination(dest *Destination) error {
	if dest.Name == "" {
		return ValidationError{Field: "destination.name", Message: "is required"}
	}
	if dest.Port != nil {
		if err := validatePortSelector(dest.Port); err != nil {
			return err
		}
	}
	return nil
}

func validatePortSelector(port *PortSelector) error {
	hasNumber := port.Number != 0
	hasName := port.Name != ""
	if hasNumber == hasName {
		return ValidationError{Field: "port", Message: "exactly one of number or name must be set"}
	}
	if hasNumber && port.Number > 65535 {
		return ValidationError{Field: "port.number", Message: "must be a valid port number"}
	}
	return nil
}

func validateStringMatch(field string, match *StringMatch) error {
	if match == nil {
		return nil
	}
	if match.variantCount() != 1 {
		return ValidationError{Field: field, Message: "exactly one of exact, prefix or regex must be set"}
	}
	return nil
}

// validateHTTPMatch rejects blocks with zero populated fields. The
// implicit catch-all is an empty match list on the route, never an
// empty block inside the list.
func validateHTTPMatch(match *HTTPMatchRequest) error {
	if match == nil {
		return ValidationError{Field: "match", Message: "match block must not be null"}
	}

	populated := match.URI != nil || match.Scheme != nil || match.Method != nil ||
		match.Authority != nil || len(match.Headers) > 0 || match.Port != nil ||
		len(match.SourceLabels) > 0 || len(match.Gateways) > 0
	if !populated {
		return ValidationError{Field: "match", Message: "block must populate at least one field; omit the match list for a catch-all"}
	}

	if err := validateStringMatch("uri", match.URI); err != nil {
		return err
	}
	if err := validateStringMatch("scheme", match.Scheme); err != nil {
		return err
	}
	if err := validateStringMatch("method", match.Method); err != nil {
		return err
	}
	if err := validateStringMatch("authority", match.Authority); err != nil {
		return err
	}
	for name, hm := range match.Headers {
		if hm == nil {
			return ValidationError{Field: "headers." + name, Message: "matcher is required"}
		}
		if err := validateStringMatch("headers."+name, hm); err != nil {
			return err
		}
	}
	if match.Port != nil {
		if err := validatePortSelector(match.Port); err != nil {
			return err
		}
	}

	return nil
}

func validateL4Match(match *L4MatchAttributes) error {
	if match == nil {
		return ValidationError{Field: "match", Message: "match block must not be null"}
	}

	populated := match.DestinationSubnet != "" || match.SourceSubnet != "" ||
		match.Port != nil || len(match.SourceLabels) > 0 || len(match.Gateways) > 0
	if !populated {
		return ValidationError{Field: "match", Message: "block must populate at least one field; omit the match list for a catch-all"}
	}

	if match.DestinationSubnet != "" {
		if _, _, err := net.ParseCIDR(match.DestinationSubnet); err != nil {
			return ValidationError{Field: "destinationSubnet", Message: fmt.Sprintf("invalid CIDR %q", match.DestinationSubnet)}
		}
	}
	if match.SourceSubnet != "" {
		if _, _, err := net.ParseCIDR(match.SourceSubnet); err != nil {
			return ValidationError{Field: "sourceSubnet", Message: fmt.Sprintf("invalid CIDR %q", match.SourceSubnet)}
		}
	}
	if match.Port != nil {
		if err := validatePortSelector(match.Port); err != nil {
			return err
		}
	}

	return nil
}

func validateFault(fault *HTTPFaultInjection) error {
	if fault.Delay == nil && fault.Abort == nil {
		return ValidationError{Field: "fault", Message: "must set delay or abort"}
	}

	if delay := fault.Delay; delay != nil {
		if p := delay.Percentage(); p < 0 || p > 100 {
			return ValidationError{Field: "delay.percent", Message: "must be between 0 and 100"}
		}
		hasFixed := delay.FixedDelay > 0
		hasExp := delay.ExponentialDelay > 0
		if hasFixed == hasExp {
			return ValidationError{Field: "delay", Message: "exactly one of fixedDelay or exponentialDelay must be set"}
		}
	}

	if abort := fault.Abort; abort != nil {
		if p := abort.Percentage(); p < 0 || p > 100 {
			return ValidationError{Field: "abort.percent", Message: "must be between 0 and 100"}
		}
		variants := 0
		if abort.HTTPStatus != 0 {
			variants++
		}
		if abort.GRPCStatus != "" {
			variants++
		}
		if abort.HTTP2Error != "" {
			variants++
		}
		if variants != 1 {
			return ValidationError{Field: "abort", Message: "exactly one of httpStatus, grpcStatus or http2Error must be set"}
		}
		if abort.HTTPStatus != 0 && (abort.HTTPStatus < 100 || abort.HTTPStatus > 599) {
			return ValidationError{Field: "abort.httpStatus", Message: "must be a valid HTTP status code"}
		}
	}

	return nil
}
