package web

import (
	"net/http"
	"strings"

	accountsstorage "github.com/keepsakehq/keepsake/internal/services/accounts/storage"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
)

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Pronouns    string `json:"pronouns"`
}

type profileResponse struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	Pronouns    string `json:"pronouns,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

func profileToResponse(profile accountsstorage.Profile) profileResponse {
	return profileResponse{
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
		Pronouns:    profile.Pronouns,
		UpdatedAt:   profile.UpdatedAt.UnixMilli(),
	}
}

// handleMe returns the authenticated user and their profile when one exists.
func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	user, err := h.accounts.GetUser(r.Context(), viewer.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	response := struct {
		User    userResponse     `json:"user"`
		Profile *profileResponse `json:"profile,omitempty"`
	}{User: userToResponse(user)}

	if profile, err := h.accounts.GetProfile(r.Context(), viewer.UserID); err == nil {
		rendered := profileToResponse(profile)
		response.Profile = &rendered
	}
	_ = httpx.WriteJSON(w, http.StatusOK, response)
}

// handleUpdateProfile validates and stores profile fields.
func (h *handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload profileRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	profile, err := h.accounts.UpdateProfile(r.Context(), viewer.UserID, payload.DisplayName, payload.Bio, payload.Pronouns)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, profileToResponse(profile))
}

// handleClaimUsername assigns a username to the authenticated user.
func (h *handler) handleClaimUsername(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload struct {
		Username string `json:"username"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	if err := h.accounts.ClaimUsername(r.Context(), viewer.UserID, payload.Username); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUsernameSuggestions returns store-verified username candidates for a
// display name. The route sits behind the suggestion rate limiter because
// every candidate costs an availability probe.
func (h *handler) handleUsernameSuggestions(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	suggestions, err := h.accounts.SuggestUsernames(r.Context(), name, nil)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}
