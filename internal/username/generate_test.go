package username

import (
	"math/rand"
	"strings"
	"testing"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestGenerateSimpleNameLeadsWithBase(t *testing.T) {
	got := Generate("Alice", nil, nil, testRNG())
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	if got[0] != "alice" {
		t.Fatalf("first suggestion = %q, want %q", got[0], "alice")
	}
}

func TestGenerateCollisionExcludesBase(t *testing.T) {
	reserved := map[string]struct{}{"admin": {}}
	got := Generate("admin", nil, reserved, testRNG())
	if len(got) == 0 {
		t.Fatal("expected non-empty suggestions despite reserved base")
	}
	for _, s := range got {
		if s == "admin" {
			t.Fatalf("suggestions include reserved base: %v", got)
		}
		if !strings.HasPrefix(s, "admin") {
			t.Fatalf("expected suffixed variant of base, got %q", s)
		}
	}
}

func TestGenerateExistingExcludedCaseInsensitive(t *testing.T) {
	got := Generate("Alice", []string{"ALICE", "alice1"}, nil, testRNG())
	for _, s := range got {
		if strings.EqualFold(s, "alice") || strings.EqualFold(s, "alice1") {
			t.Fatalf("suggestion %q collides with existing set", s)
		}
	}
	if len(got) == 0 {
		t.Fatal("expected variants despite collisions")
	}
}

func TestGenerateCompoundName(t *testing.T) {
	got := Generate("John Doe", nil, nil, testRNG())
	if got[0] != "john_doe" {
		t.Fatalf("first suggestion = %q, want %q", got[0], "john_doe")
	}
	wantSome := map[string]bool{"johndoe": false, "jdoe": false}
	for _, s := range got {
		if _, ok := wantSome[s]; ok {
			wantSome[s] = true
		}
	}
	for variant, found := range wantSome {
		if !found {
			t.Fatalf("expected compound variant %q in %v", variant, got)
		}
	}
}

func TestGenerateAccentedCompoundName(t *testing.T) {
	got := Generate("José García", nil, nil, testRNG())
	found := false
	for _, s := range got {
		if strings.Contains(s, "jose") && strings.Contains(s, "garcia") {
			found = true
			break
		}
		if s == "jgarcia" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected jose/garcia derivative in %v", got)
	}
}

func TestGenerateHyphenatedNamePreservesHyphen(t *testing.T) {
	got := Generate("Mary-Jane Smith", nil, nil, testRNG())
	found := false
	for _, s := range got {
		if strings.Contains(s, "mary-jane") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected hyphen-preserving variant in %v", got)
	}
}

func TestGenerateGarbageInputFallsBack(t *testing.T) {
	for _, raw := range []string{"!!!", "", "   ", "日本語"} {
		got := Generate(raw, nil, nil, testRNG())
		if len(got) == 0 {
			t.Fatalf("Generate(%q) returned no fallback suggestions", raw)
		}
		for _, s := range got {
			if !Valid(s) {
				t.Fatalf("fallback %q for input %q is not format-valid", s, raw)
			}
		}
	}
}

func TestGenerateShortNamePadded(t *testing.T) {
	got := Generate("Al", nil, nil, testRNG())
	if len(got) == 0 {
		t.Fatal("expected suggestions for short name")
	}
	for _, s := range got {
		if len(s) < MinLength {
			t.Fatalf("suggestion %q shorter than minimum", s)
		}
	}
	if !strings.HasPrefix(got[0], "al") {
		t.Fatalf("first suggestion = %q, want padded base", got[0])
	}
}

func TestGenerateLongNameTruncated(t *testing.T) {
	got := Generate("verylongusernamethatexceedsthirtychars", nil, nil, testRNG())
	if len(got) == 0 {
		t.Fatal("expected suggestions for long name")
	}
	for _, s := range got {
		if len(s) > MaxLength {
			t.Fatalf("suggestion %q exceeds %d characters", s, MaxLength)
		}
		if !Valid(s) {
			t.Fatalf("suggestion %q is not format-valid", s)
		}
	}
}

func TestGenerateFormatAndBoundsInvariants(t *testing.T) {
	inputs := []string{
		"Alice", "John Doe", "José García", "Mary-Jane Smith", "Al",
		"verylongusernamethatexceedsthirtychars", "x y z w v", "42",
		"  spaced   out  ", "!!!",
	}
	for _, raw := range inputs {
		got := Generate(raw, nil, nil, testRNG())
		if len(got) > MaxSuggestions {
			t.Fatalf("Generate(%q) returned %d suggestions, cap is %d", raw, len(got), MaxSuggestions)
		}
		seen := make(map[string]struct{})
		for _, s := range got {
			if !Valid(s) {
				t.Fatalf("Generate(%q) produced invalid candidate %q", raw, s)
			}
			if len(s) < MinLength || len(s) > MaxLength {
				t.Fatalf("Generate(%q) produced out-of-bounds candidate %q", raw, s)
			}
			key := strings.ToLower(s)
			if _, dup := seen[key]; dup {
				t.Fatalf("Generate(%q) produced duplicate candidate %q", raw, s)
			}
			seen[key] = struct{}{}
		}
	}
}

func TestGenerateDeterministicWithSeededRNG(t *testing.T) {
	inputs := []string{"Alice", "John Doe", "!!!", "Al", "admin"}
	reserved := DefaultReserved()
	for _, raw := range inputs {
		first := Generate(raw, []string{"taken"}, reserved, rand.New(rand.NewSource(7)))
		second := Generate(raw, []string{"taken"}, reserved, rand.New(rand.NewSource(7)))
		if len(first) != len(second) {
			t.Fatalf("Generate(%q) lengths differ: %v vs %v", raw, first, second)
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("Generate(%q) not deterministic: %v vs %v", raw, first, second)
			}
		}
	}
}

func TestGenerateNilRNGStillWorks(t *testing.T) {
	got := Generate("Alice", nil, nil, nil)
	if len(got) == 0 || got[0] != "alice" {
		t.Fatalf("Generate with nil rng = %v, want alice first", got)
	}
}

func TestGenerateDigitLeadingNameAnchored(t *testing.T) {
	got := Generate("42", nil, nil, testRNG())
	if len(got) == 0 {
		t.Fatal("expected suggestions for digit-leading name")
	}
	for _, s := range got {
		if !Valid(s) {
			t.Fatalf("candidate %q is not format-valid", s)
		}
	}
}

func TestGenerateFullyExcludedFallbacksEmpty(t *testing.T) {
	// Excluding every fallback component combination is impractical, but a
	// base whose every variant is taken must still return a defined result.
	existing := []string{"alice"}
	got := Generate("Alice", existing, nil, testRNG())
	for _, s := range got {
		if s == "alice" {
			t.Fatalf("excluded candidate returned: %v", got)
		}
	}
}

func TestDefaultReservedBlocksSuggestions(t *testing.T) {
	reserved := DefaultReserved()
	got := Generate("Admin", nil, reserved, testRNG())
	for _, s := range got {
		if _, bad := reserved[s]; bad {
			t.Fatalf("reserved name %q suggested", s)
		}
	}
}
