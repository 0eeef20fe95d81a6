package username

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Alice", "alice"},
		{"trims space", "  Alice  ", "alice"},
		{"whitespace run to underscore", "John   Doe", "john_doe"},
		{"accents stripped", "José García", "jose_garcia"},
		{"umlaut", "Jürgen", "jurgen"},
		{"symbols dropped", "a!b@c#", "abc"},
		{"underscore collapse", "a___b", "a_b"},
		{"leading trailing underscores", "_alice_", "alice"},
		{"leading hyphen stripped", "-alice", "alice"},
		{"inner hyphen kept", "mary-jane", "mary-jane"},
		{"digits kept", "agent 47", "agent_47"},
		{"symbol only", "!!!", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"non latin script", "日本語", ""},
		{"mixed script keeps latin", "日本語abc", "abc"},
		{"tab and newline", "a\tb\nc", "a_b_c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Alice", "José García", "  spaced   out  ", "mary-jane smith",
		"___x___", "-lead", "MIXED Case 99", "!!!", "日本語abc", "a_b-c d",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestValid(t *testing.T) {
	valid := []string{"abc", "alice", "a12", "a_b-c", "a" + strings.Repeat("x", 29)}
	for _, v := range valid {
		if !Valid(v) {
			t.Fatalf("Valid(%q) = false, want true", v)
		}
	}
	invalid := []string{"", "ab", "1abc", "-abc", "_abc", "Alice", "a b", "abcdefghijklmnopqrstuvwxyzabcde"}
	for _, v := range invalid {
		if Valid(v) {
			t.Fatalf("Valid(%q) = true, want false", v)
		}
	}
}
