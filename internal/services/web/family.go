package web

import (
	"net/http"
	"strings"
	"time"

	familydomain "github.com/keepsakehq/keepsake/internal/services/family/domain"
	familystorage "github.com/keepsakehq/keepsake/internal/services/family/storage"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
)

// birthDateLayout is the wire format for child birth dates.
const birthDateLayout = "2006-01-02"

type familyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

type memberResponse struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joined_at"`
}

type childResponse struct {
	ID        string `json:"id"`
	FamilyID  string `json:"family_id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
}

func familyToResponse(family familystorage.Family) familyResponse {
	return familyResponse{ID: family.ID, Name: family.Name, CreatedAt: family.CreatedAt.UnixMilli()}
}

func memberToResponse(member familystorage.Member) memberResponse {
	return memberResponse{UserID: member.UserID, Role: member.Role, JoinedAt: member.JoinedAt.UnixMilli()}
}

func childToResponse(child familystorage.Child) childResponse {
	return childResponse{
		ID:        child.ID,
		FamilyID:  child.FamilyID,
		Name:      child.Name,
		BirthDate: child.BirthDate.UTC().Format(birthDateLayout),
	}
}

func (h *handler) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload struct {
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	family, err := h.family.CreateFamily(r.Context(), viewer.UserID, payload.Name)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, familyToResponse(family))
}

func (h *handler) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	families, err := h.family.ListFamilies(r.Context(), viewer.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	rendered := make([]familyResponse, 0, len(families))
	for _, family := range families {
		rendered = append(rendered, familyToResponse(family))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]familyResponse{"families": rendered})
}

func (h *handler) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	family, err := h.family.GetFamily(r.Context(), viewer.UserID, r.PathValue("familyID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, familyToResponse(family))
}

func (h *handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	members, err := h.family.ListMembers(r.Context(), viewer.UserID, r.PathValue("familyID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	rendered := make([]memberResponse, 0, len(members))
	for _, member := range members {
		rendered = append(rendered, memberToResponse(member))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]memberResponse{"members": rendered})
}

func (h *handler) handleAddChild(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload struct {
		Name      string `json:"name"`
		BirthDate string `json:"birth_date"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	birthDate, err := time.Parse(birthDateLayout, strings.TrimSpace(payload.BirthDate))
	if err != nil {
		httpx.WriteBadRequest(w, "birth_date must use YYYY-MM-DD")
		return
	}
	child, err := h.family.AddChild(r.Context(), viewer.UserID, r.PathValue("familyID"), payload.Name, birthDate)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, childToResponse(child))
}

func (h *handler) handleListChildren(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	children, err := h.family.ListChildren(r.Context(), viewer.UserID, r.PathValue("familyID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	rendered := make([]childResponse, 0, len(children))
	for _, child := range children {
		rendered = append(rendered, childToResponse(child))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]childResponse{"children": rendered})
}

func (h *handler) handleGetChild(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	child, err := h.family.GetChild(r.Context(), viewer.UserID, r.PathValue("childID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, childToResponse(child))
}

func (h *handler) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	issued, err := h.family.CreateInvite(r.Context(), viewer.UserID, r.PathValue("familyID"), payload.Email, familydomain.Role(payload.Role))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"invite": map[string]any{
			"id":         issued.Invite.ID,
			"family_id":  issued.Invite.FamilyID,
			"email":      issued.Invite.Email,
			"role":       issued.Invite.Role,
			"expires_at": issued.Invite.ExpiresAt.UnixMilli(),
		},
		"grant": issued.Grant,
	})
}

func (h *handler) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload struct {
		Grant string `json:"grant"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	member, err := h.family.RedeemInvite(r.Context(), viewer.UserID, payload.Grant)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"family_id": member.FamilyID,
		"role":      member.Role,
		"joined_at": member.JoinedAt.UnixMilli(),
	})
}
