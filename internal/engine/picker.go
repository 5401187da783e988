package engine

import (
	"math/rand"

	"mesh-router/internal/rules"
)

// randSource is the uniform randomness the engine draws from. It is
// satisfied by *rand.Rand; the default implementation delegates to the
// math/rand package-level functions, which are safe for concurrent use.
type randSource interface {
	Intn(n int) int
	ExpFloat64() float64
}

type globalRand struct{}

func (globalRand) Intn(n int) int      { return rand.Intn(n) }
func (globalRand) ExpFloat64() float64 { return rand.ExpFloat64() }

// pickDestination selects one destination proportionally to the stated
// weights: the list is treated as a cumulative partition of [0, total)
// and a single uniform draw picks the slot. A single-entry list always
// returns that entry regardless of its stated weight. Validation
// guarantees multi-entry lists sum to 100, but a defensive list that
// does not is normalized by drawing over the actual total instead of
// crashing.
func pickDestination(dests []*rules.DestinationWeight, rng randSource) *rules.Destination {
	if len(dests) == 0 {
		return nil
	}
	if len(dests) == 1 {
		return dests[0].Destination
	}

	total := 0
	for _, dw := range dests {
		if dw.Weight > 0 {
			total += dw.Weight
		}
	}
	if total == 0 {
		return dests[0].Destination
	}

	draw := rng.Intn(total)
	acc := 0
	for _, dw := range dests {
		if dw.Weight <= 0 {
			continue
		}
		acc += dw.Weight
		if draw < acc {
			return dw.Destination
		}
	}

	return dests[len(dests)-1].Destination
}
