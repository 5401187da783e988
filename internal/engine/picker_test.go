package engine

import (
	"math/rand"
	"testing"

	"mesh-router/internal/rules"
)

func TestPickDestination_SingleEntryBypassesRandomness(t *testing.T) {
	// The stated weight is irrelevant for a single-entry list.
	for _, weight := range []int{0, 1, 37, 100} {
		dests := []*rules.DestinationWeight{
			{Destination: dest("reviews", "v1"), Weight: weight},
		}
		picked := pickDestination(dests, nil)
		if picked == nil || picked.Name != "reviews" {
			t.Errorf("weight=%d: single-entry list must always return its entry", weight)
		}
	}
}

func TestPickDestination_Empty(t *testing.T) {
	if picked := pickDestination(nil, globalRand{}); picked != nil {
		t.Errorf("pickDestination(nil) = %v, want nil", picked)
	}
}

func TestPickDestination_ZeroWeightNeverPicked(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dests := []*rules.DestinationWeight{
		{Destination: dest("svc", "dead"), Weight: 0},
		{Destination: dest("svc", "live"), Weight: 100},
	}
	for i := 0; i < 1000; i++ {
		if picked := pickDestination(dests, rng); picked.Labels["version"] != "live" {
			t.Fatalf("draw %d picked the zero-weight destination", i)
		}
	}
}

// Selection must be statistically fair: over many draws the pick
// frequencies converge to the configured proportions.
func TestPickDestination_Fairness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dests := []*rules.DestinationWeight{
		{Destination: dest("svc", "v1"), Weight: 50},
		{Destination: dest("svc", "v2"), Weight: 30},
		{Destination: dest("svc", "v3"), Weight: 20},
	}

	const draws = 100000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		picked := pickDestination(dests, rng)
		counts[picked.Labels["version"]]++
	}

	// ±2% tolerance over 100k draws.
	const tolerance = draws * 2 / 100
	wants := map[string]int{"v1": 50000, "v2": 30000, "v3": 20000}
	for version, want := range wants {
		got := counts[version]
		if got < want-tolerance || got > want+tolerance {
			t.Errorf("version %s picked %d times over %d draws, want %d±%d", version, got, draws, want, tolerance)
		}
	}
}

// Weights not summing to 100 are normalized over the actual total
// rather than crashing.
func TestPickDestination_NonNormalizedWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	dests := []*rules.DestinationWeight{
		{Destination: dest("svc", "a"), Weight: 10},
		{Destination: dest("svc", "b"), Weight: 30},
	}

	const draws = 100000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		counts[pickDestination(dests, rng).Labels["version"]]++
	}

	// 10:30 normalizes to 25%/75%.
	if got := counts["a"]; got < 23000 || got > 27000 {
		t.Errorf("version a picked %d times, want ~25000", got)
	}
	if counts["a"]+counts["b"] != draws {
		t.Errorf("picks outside the destination list: %v", counts)
	}
}

func TestPickDestination_AllZeroWeights(t *testing.T) {
	dests := []*rules.DestinationWeight{
		{Destination: dest("svc", "a"), Weight: 0},
		{Destination: dest("svc", "b"), Weight: 0},
	}
	picked := pickDestination(dests, globalRand{})
	if picked == nil || picked.Labels["version"] != "a" {
		t.Error("all-zero weights must fall back to the first destination, not crash")
	}
}
