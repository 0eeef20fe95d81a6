package username

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldASCII decomposes Unicode text and drops combining marks, so accented
// Latin letters reduce to their ASCII base ("José" -> "Jose"). Characters
// with no ASCII base survive decomposition unchanged and are dropped later.
var foldASCII = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts a raw display name into a candidate username token.
//
// The result is lowercase, contains only [a-z0-9_-], has whitespace runs
// replaced by single underscores, and carries no leading or trailing
// underscores and no leading hyphens. Inputs with no usable ASCII letters
// normalize to the empty string; callers must treat that as "no usable
// base". Normalize is pure and idempotent.
func Normalize(raw string) string {
	folded, _, err := transform.String(foldASCII, raw)
	if err != nil {
		// Malformed input falls through undecomposed; the character
		// filter below still guarantees the output alphabet.
		folded = raw
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		// Every other character is dropped without replacement.
	}

	out := strings.Trim(b.String(), "_")
	out = strings.TrimLeft(out, "-")
	return out
}
