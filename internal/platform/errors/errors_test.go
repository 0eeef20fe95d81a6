package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeUsernameTaken, "username already claimed")
	if !stderrors.Is(err, New(CodeUsernameTaken, "other message")) {
		t.Fatal("expected code-based match")
	}
	if stderrors.Is(err, New(CodeNotFound, "username already claimed")) {
		t.Fatal("unexpected match across codes")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "store memory", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in error chain")
	}
	if err.Error() != "store memory" {
		t.Fatalf("message = %q, want %q", err.Error(), "store memory")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeUsernameInvalidFormat, http.StatusBadRequest},
		{CodeUsernameReserved, http.StatusBadRequest},
		{CodeUsernameTaken, http.StatusConflict},
		{CodeSessionExpired, http.StatusUnauthorized},
		{CodeFamilyNotMember, http.StatusForbidden},
		{CodeInviteGrantExpired, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnknown, http.StatusInternalServerError},
		{Code("NEVER_SEEN"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("%s status = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	err := WithMetadata(CodeChildBirthInFuture, "birth date in future", map[string]string{"child": "c1"})
	if err.Metadata["child"] != "c1" {
		t.Fatalf("metadata child = %q, want c1", err.Metadata["child"])
	}
}
