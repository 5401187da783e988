package engine

import (
	"time"

	"mesh-router/internal/rules"
)

// shouldDelay draws once against the delay's percentage and returns the
// configured duration when the draw lands. An exponential delay is
// sampled with the configured value as its mean. An omitted percent
// means always.
func shouldDelay(spec *rules.FaultDelay, rng randSource) (time.Duration, bool) {
	if spec == nil {
		return 0, false
	}
	if !sample(spec.Percentage(), rng) {
		return 0, false
	}
	if spec.FixedDelay > 0 {
		return spec.FixedDelay.Value(), true
	}
	if spec.ExponentialDelay > 0 {
		return time.Duration(rng.ExpFloat64() * float64(spec.ExponentialDelay.Value())), true
	}
	return 0, false
}

// shouldAbort draws once against the abort's percentage and returns the
// configured HTTP status when the draw lands. The gRPC and HTTP/2 error
// variants are accepted in configuration but not enforced; an abort
// carrying only those never fires.
func shouldAbort(spec *rules.FaultAbort, rng randSource) (int, bool) {
	if spec == nil || spec.HTTPStatus == 0 {
		return 0, false
	}
	if !sample(spec.Percentage(), rng) {
		return 0, false
	}
	return spec.HTTPStatus, true
}

// sample draws a uniform integer in [0,100) and reports whether it
// falls under percent.
func sample(percent int, rng randSource) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return rng.Intn(100) < percent
}
