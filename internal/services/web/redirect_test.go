package web

import "testing"

func TestSafeNextPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "/"},
		{"relative path", "/app/onboarding", "/app/onboarding"},
		{"path with query", "/app?tab=memories", "/app?tab=memories"},
		{"absolute url", "https://evil.example/phish", "/"},
		{"protocol relative", "//evil.example/phish", "/"},
		{"backslash escape", "/\\evil.example", "/"},
		{"bare word", "app", "/"},
		{"header injection", "/app\r\nSet-Cookie: x=1", "/"},
		{"whitespace only", "   ", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeNextPath(tt.raw); got != tt.want {
				t.Errorf("safeNextPath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
