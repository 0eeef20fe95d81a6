package sessioncookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keepsakehq/keepsake/internal/services/web/platform/requestmeta"
)

func TestWriteAndRead(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	Write(recorder, request, "session-123")

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count = %d, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != Name || cookie.Value != "session-123" {
		t.Errorf("cookie = %s=%s, want %s=session-123", cookie.Name, cookie.Value, Name)
	}
	if !cookie.HttpOnly {
		t.Error("cookie is not HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.Secure {
		t.Error("cookie is Secure over plain http")
	}

	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	readReq.AddCookie(cookie)
	value, ok := Read(readReq)
	if !ok || value != "session-123" {
		t.Errorf("Read() = %q, %v, want session-123, true", value, ok)
	}
}

func TestSecureByForwardedProto(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Forwarded-Proto", "https")

	WriteWithPolicy(recorder, request, "session-123", requestmeta.SchemePolicy{TrustForwardedProto: true})
	if !recorder.Result().Cookies()[0].Secure {
		t.Error("cookie is not Secure behind trusted https proxy")
	}

	// The header is ignored without the explicit trust flag.
	recorder = httptest.NewRecorder()
	Write(recorder, request, "session-123")
	if recorder.Result().Cookies()[0].Secure {
		t.Error("cookie trusted X-Forwarded-Proto without policy opt-in")
	}
}

func TestClearExpiresCookie(t *testing.T) {
	recorder := httptest.NewRecorder()
	Clear(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count = %d, want 1", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("cookie value = %q, want empty", cookies[0].Value)
	}
}

func TestReadMissingCookie(t *testing.T) {
	if value, ok := Read(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Errorf("Read() on bare request = %q, true; want false", value)
	}
}
