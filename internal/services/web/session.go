package web

import (
	"context"
	"net/http"

	accountsdomain "github.com/keepsakehq/keepsake/internal/services/accounts/domain"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/sessioncookie"
)

type contextKey string

const viewerContextKey contextKey = "web.viewer"

// Viewer is the authenticated identity attached to a request.
type Viewer struct {
	UserID   string
	Email    string
	Username string
}

// ViewerFromContext returns the authenticated viewer when present.
func ViewerFromContext(ctx context.Context) (Viewer, bool) {
	viewer, ok := ctx.Value(viewerContextKey).(Viewer)
	return viewer, ok
}

// requireSession resolves the session cookie into a viewer and rejects
// unauthenticated requests. Expired or unknown sessions clear the cookie so
// clients do not retry a dead credential.
func (h *handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessioncookie.Read(r)
		if !ok {
			httpx.WriteError(w, accountsdomain.ErrSessionInvalid)
			return
		}
		user, err := h.accounts.ResolveSession(r.Context(), sessionID)
		if err != nil {
			sessioncookie.ClearWithPolicy(w, r, h.schemePolicy)
			httpx.WriteError(w, err)
			return
		}
		viewer := Viewer{UserID: user.ID, Email: user.Email, Username: user.Username}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerContextKey, viewer)))
	})
}
