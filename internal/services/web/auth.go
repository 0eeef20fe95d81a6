package web

import (
	"net/http"

	accountsdomain "github.com/keepsakehq/keepsake/internal/services/accounts/domain"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/sessioncookie"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type authResponse struct {
	User userResponse `json:"user"`
	Next string       `json:"next"`
}

func userToResponse(user accountsdomain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.UnixMilli(),
	}
}

// handleSignup registers an account and starts a session in one step.
func (h *handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	user, err := h.accounts.Signup(r.Context(), payload.Email, payload.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.startSession(w, r, user.ID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, authResponse{
		User: userToResponse(user),
		Next: safeNextPath(payload.Next),
	})
}

// handleLogin authenticates credentials and rotates the session cookie.
func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.startSession(w, r, user.ID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, authResponse{
		User: userToResponse(user),
		Next: safeNextPath(payload.Next),
	})
}

// handleLogout ends the current session. Logging out without a session is a
// no-op success.
func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := sessioncookie.Read(r); ok {
		if err := h.accounts.EndSession(r.Context(), sessionID); err != nil {
			httpx.WriteError(w, err)
			return
		}
	}
	sessioncookie.ClearWithPolicy(w, r, h.schemePolicy)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	session, err := h.accounts.CreateSession(r.Context(), userID)
	if err != nil {
		return err
	}
	sessioncookie.WriteWithPolicy(w, r, session.ID, h.schemePolicy)
	return nil
}
