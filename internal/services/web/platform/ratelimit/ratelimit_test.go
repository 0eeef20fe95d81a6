package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestKeyedAllowsWithinBurst(t *testing.T) {
	limiter := NewKeyed(rate.Limit(0.001), 2)

	for i := 0; i < 2; i++ {
		allowed, _ := limiter.Allow("key-a")
		if !allowed {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	allowed, retryAfter := limiter.Allow("key-a")
	if allowed {
		t.Fatal("request beyond burst was allowed")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %v, want positive", retryAfter)
	}

	// Other keys have their own bucket.
	if allowed, _ := limiter.Allow("key-b"); !allowed {
		t.Error("fresh key denied")
	}
}

func TestMiddlewareWrites429(t *testing.T) {
	limiter := NewKeyed(rate.Limit(0.001), 1)
	handler := Middleware(limiter, func(*http.Request) string { return "fixed" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("429 response is missing Retry-After")
	}
}

func TestMiddlewareWithoutLimiterPassesThrough(t *testing.T) {
	handler := Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want passthrough 418", recorder.Code)
	}
}
