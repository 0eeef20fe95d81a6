package web

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	accountsdomain "github.com/keepsakehq/keepsake/internal/services/accounts/domain"
	familydomain "github.com/keepsakehq/keepsake/internal/services/family/domain"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/ratelimit"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/requestmeta"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/sessioncookie"
)

const (
	// defaultSuggestionRate throttles username-suggestion probes, which fan
	// out into per-candidate store lookups.
	defaultSuggestionRate  = rate.Limit(1)
	defaultSuggestionBurst = 5
)

// Services are the domain dependencies the web handlers compose.
type Services struct {
	Accounts *accountsdomain.Service
	Family   *familydomain.Service
	Memories *memoriesdomain.Service
}

// Config tunes handler behavior; zero values select defaults.
type Config struct {
	// TrustForwardedProto enables X-Forwarded-Proto scheme resolution for
	// cookie security behind a TLS-terminating proxy.
	TrustForwardedProto bool
	SuggestionRate      rate.Limit
	SuggestionBurst     int
}

type handler struct {
	accounts     *accountsdomain.Service
	family       *familydomain.Service
	memories     *memoriesdomain.Service
	schemePolicy requestmeta.SchemePolicy
}

// NewHandler assembles the REST API routes.
func NewHandler(services Services, cfg Config) (http.Handler, error) {
	if services.Accounts == nil || services.Family == nil || services.Memories == nil {
		return nil, fmt.Errorf("accounts, family, and memories services are required")
	}
	if cfg.SuggestionRate <= 0 {
		cfg.SuggestionRate = defaultSuggestionRate
	}
	if cfg.SuggestionBurst <= 0 {
		cfg.SuggestionBurst = defaultSuggestionBurst
	}

	h := &handler{
		accounts:     services.Accounts,
		family:       services.Family,
		memories:     services.Memories,
		schemePolicy: requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
	}

	suggestionLimiter := ratelimit.NewKeyed(cfg.SuggestionRate, cfg.SuggestionBurst)
	throttled := ratelimit.Middleware(suggestionLimiter, throttleKey)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", h.handleSignup)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)

	protect := func(fn http.HandlerFunc) http.Handler {
		return h.requireSession(fn)
	}

	mux.Handle("GET /api/me", protect(h.handleMe))
	mux.Handle("PUT /api/me/profile", protect(h.handleUpdateProfile))
	mux.Handle("POST /api/me/username", protect(h.handleClaimUsername))
	mux.Handle("GET /api/username-suggestions", httpx.Chain(protect(h.handleUsernameSuggestions), throttled))

	mux.Handle("POST /api/families", protect(h.handleCreateFamily))
	mux.Handle("GET /api/families", protect(h.handleListFamilies))
	mux.Handle("GET /api/families/{familyID}", protect(h.handleGetFamily))
	mux.Handle("GET /api/families/{familyID}/members", protect(h.handleListMembers))
	mux.Handle("POST /api/families/{familyID}/children", protect(h.handleAddChild))
	mux.Handle("GET /api/families/{familyID}/children", protect(h.handleListChildren))
	mux.Handle("GET /api/children/{childID}", protect(h.handleGetChild))
	mux.Handle("POST /api/families/{familyID}/invites", protect(h.handleCreateInvite))
	mux.Handle("POST /api/invites/redeem", protect(h.handleRedeemInvite))

	mux.Handle("POST /api/memories", protect(h.handleCaptureMemory))
	mux.Handle("GET /api/memories/{memoryID}", protect(h.handleGetMemory))
	mux.Handle("PUT /api/memories/{memoryID}", protect(h.handleUpdateMemory))
	mux.Handle("DELETE /api/memories/{memoryID}", protect(h.handleDeleteMemory))
	mux.Handle("GET /api/families/{familyID}/memories", protect(h.handleListMemories))
	mux.Handle("GET /api/families/{familyID}/children/{childID}/milestones", protect(h.handleListMilestones))

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return httpx.Chain(mux, httpx.RecoverPanic()), nil
}

// throttleKey buckets rate limits by session when available, falling back to
// the remote host for unauthenticated callers.
func throttleKey(r *http.Request) string {
	if sessionID, ok := sessioncookie.Read(r); ok {
		return "session:" + sessionID
	}
	return "remote:" + requestmeta.RemoteHost(r)
}
