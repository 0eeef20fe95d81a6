package username

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/keepsakehq/keepsake/internal/random"
)

// Generate returns up to MaxSuggestions candidate usernames derived from a
// raw display name. The first candidate is the normalized base itself when
// it is valid and free. Candidates that fail the format, collide with
// existing (case-insensitive), or appear in reserved are silently dropped;
// an empty result means no usable suggestion could be formed and is not an
// error.
//
// rng drives every randomized choice. Supplying an identically seeded rng
// with identical inputs yields identical output. A nil rng is seeded from
// crypto/rand, so production callers never depend on global random state.
func Generate(raw string, existing []string, reserved map[string]struct{}, rng *rand.Rand) []string {
	if rng == nil {
		seed, err := random.NewSeed()
		if err != nil {
			seed = int64(len(raw) + len(existing) + 1)
		}
		rng = rand.New(rand.NewSource(seed))
	}

	c := newCollector(existing, reserved)

	base := Normalize(raw)
	if base == "" {
		addFallbacks(c, rng)
		return c.out
	}
	base = anchor(base, rng)

	c.add(base)

	parts := nameParts(raw)
	if len(parts) >= 2 {
		joined := strings.Join(parts, "")
		c.add(anchor(joined, rng))
		c.add(anchor(initials(parts), rng))
		c.add(anchor(strings.Join(parts, "-"), rng))
	}
	if strings.Contains(base, "_") {
		c.add(strings.ReplaceAll(base, "_", "-"))
	}

	c.add(withSuffix(base, strconv.Itoa(1+rng.Intn(9))))
	c.add(withSuffix(base, strconv.Itoa(10+rng.Intn(90))))
	c.add(withSuffix(base, strconv.Itoa(yearFloor+rng.Intn(yearSpan))))

	return c.out
}

// yearFloor and yearSpan bound the year-like suffix variant.
const (
	yearFloor = 1950
	yearSpan  = 75
)

// anchor repairs a normalized token that cannot open a valid username:
// tokens shorter than MinLength gain random digits, and tokens that start
// with a digit gain a letter prefix.
func anchor(token string, rng *rand.Rand) string {
	if token == "" {
		return token
	}
	if token[0] >= '0' && token[0] <= '9' {
		token = "u" + token
	}
	for len(token) < MinLength {
		token += strconv.Itoa(rng.Intn(10))
	}
	if len(token) > MaxLength {
		token = token[:MaxLength]
	}
	return token
}

// withSuffix appends suffix to base, truncating base first so the result
// never exceeds MaxLength.
func withSuffix(base, suffix string) string {
	limit := MaxLength - len(suffix)
	if limit < 1 {
		return ""
	}
	if len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

// nameParts normalizes each whitespace-separated segment of the raw name
// independently, preserving intra-segment hyphens.
func nameParts(raw string) []string {
	var parts []string
	for _, field := range strings.Fields(raw) {
		if p := Normalize(field); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// initials compresses leading name parts to single letters ahead of the
// final part: "john" "doe" -> "jdoe".
func initials(parts []string) string {
	if len(parts) < 2 {
		return ""
	}
	var b strings.Builder
	for _, p := range parts[:len(parts)-1] {
		b.WriteByte(p[0])
	}
	b.WriteString(parts[len(parts)-1])
	return b.String()
}

// collector accumulates valid, unexcluded candidates up to MaxSuggestions.
type collector struct {
	out      []string
	seen     map[string]struct{}
	excluded map[string]struct{}
}

func newCollector(existing []string, reserved map[string]struct{}) *collector {
	excluded := make(map[string]struct{}, len(existing)+len(reserved))
	for _, name := range existing {
		excluded[strings.ToLower(name)] = struct{}{}
	}
	for name := range reserved {
		excluded[strings.ToLower(name)] = struct{}{}
	}
	return &collector{
		seen:     make(map[string]struct{}),
		excluded: excluded,
	}
}

// add appends candidate when it passes the constraint filter. Failing
// candidates are dropped without error.
func (c *collector) add(candidate string) bool {
	if len(c.out) >= MaxSuggestions {
		return false
	}
	if !Valid(candidate) {
		return false
	}
	key := strings.ToLower(candidate)
	if _, dup := c.seen[key]; dup {
		return false
	}
	if _, excluded := c.excluded[key]; excluded {
		return false
	}
	c.seen[key] = struct{}{}
	c.out = append(c.out, candidate)
	return true
}
