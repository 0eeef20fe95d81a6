// Package ratelimit provides per-key request throttling for web routes.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
)

// KeyFunc derives the throttle key for a request, typically the session id
// or the remote host.
type KeyFunc func(r *http.Request) string

// Keyed tracks one token bucket per key.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyed creates a keyed limiter allowing limit events per second with the
// given burst.
func NewKeyed(limit rate.Limit, burst int) *Keyed {
	if burst <= 0 {
		burst = 1
	}
	return &Keyed{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether a request under key may proceed now. When denied it
// also returns how long the caller should wait before retrying.
func (k *Keyed) Allow(key string) (bool, time.Duration) {
	if k == nil {
		return true, 0
	}
	k.mu.Lock()
	limiter, ok := k.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = limiter
	}
	k.mu.Unlock()

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, time.Second
	}
	delay := reservation.Delay()
	if delay > 0 {
		reservation.Cancel()
		return false, delay
	}
	return true, 0
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
func Middleware(limiter *Keyed, keyFor KeyFunc) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || keyFor == nil {
				next.ServeHTTP(w, r)
				return
			}
			allowed, retryAfter := limiter.Allow(keyFor(r))
			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				httpx.WriteError(w, apperrors.New(apperrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
