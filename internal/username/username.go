// Package username normalizes display names into valid usernames and
// generates collision-avoiding suggestion lists.
//
// The package is a pure computation: it performs no I/O and holds no state
// between calls. Callers supply the snapshot of existing usernames and the
// reserved-name policy, and must re-verify availability against the
// authoritative store before committing a username, since the snapshot may
// be stale relative to concurrent signups.
package username

import "regexp"

const (
	// MinLength is the minimum username length.
	MinLength = 3
	// MaxLength is the maximum username length.
	MaxLength = 30
	// MaxSuggestions caps the number of candidates Generate returns.
	MaxSuggestions = 8
)

// pattern is the canonical username format: lowercase start, body of
// lowercase letters, digits, underscore, and hyphen.
var pattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{2,29}$`)

// Valid reports whether candidate satisfies the username format.
func Valid(candidate string) bool {
	return pattern.MatchString(candidate)
}
