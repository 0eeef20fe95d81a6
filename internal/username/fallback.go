package username

import (
	"math/rand"
	"strconv"
)

// Generic fallback components for inputs with no usable base.
var fallbackAdjectives = []string{
	"sunny", "brave", "gentle", "merry", "bright",
	"cozy", "lively", "golden", "quiet", "rosy",
	"amber", "breezy", "clever", "dapper", "early",
}

var fallbackNouns = []string{
	"sparrow", "willow", "acorn", "meadow", "clover",
	"pebble", "juniper", "maple", "fern", "otter",
	"harbor", "lantern", "thistle", "wren", "ember",
}

// addFallbacks emits adjective/noun combinations when normalization yields
// no usable base. The set is small and fixed-size; the constraint filter
// still applies, so a fully excluded fallback set produces an empty result.
func addFallbacks(c *collector, rng *rand.Rand) {
	adjective := fallbackAdjectives[rng.Intn(len(fallbackAdjectives))]
	noun := fallbackNouns[rng.Intn(len(fallbackNouns))]
	digit := strconv.Itoa(1 + rng.Intn(9))
	wide := strconv.Itoa(10 + rng.Intn(90))

	c.add(adjective + "_" + noun)
	c.add(adjective + noun)
	c.add(adjective + "_" + noun + digit)
	c.add(noun + "_" + wide)
	c.add(adjective + "-" + noun)
	c.add(noun + digit + wide)
}
