package web

import (
	"net/http"
	"strconv"

	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriesstorage "github.com/keepsakehq/keepsake/internal/services/memories/storage"
	"github.com/keepsakehq/keepsake/internal/services/web/platform/httpx"
)

type memoryRequest struct {
	FamilyID   string `json:"family_id"`
	ChildID    string `json:"child_id,omitempty"`
	Kind       string `json:"kind"`
	Title      string `json:"title,omitempty"`
	Body       string `json:"body,omitempty"`
	MediaKey   string `json:"media_key,omitempty"`
	CapturedAt int64  `json:"captured_at,omitempty"`
}

type memoryResponse struct {
	ID         string `json:"id"`
	FamilyID   string `json:"family_id"`
	ChildID    string `json:"child_id,omitempty"`
	AuthorID   string `json:"author_id"`
	Kind       string `json:"kind"`
	Title      string `json:"title,omitempty"`
	Body       string `json:"body,omitempty"`
	MediaKey   string `json:"media_key,omitempty"`
	CapturedAt int64  `json:"captured_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

type milestoneResponse struct {
	ID         string  `json:"id"`
	MemoryID   string  `json:"memory_id"`
	ChildID    string  `json:"child_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	DetectedAt int64   `json:"detected_at"`
}

func memoryToResponse(memory memoriesstorage.Memory) memoryResponse {
	return memoryResponse{
		ID:         memory.ID,
		FamilyID:   memory.FamilyID,
		ChildID:    memory.ChildID,
		AuthorID:   memory.AuthorID,
		Kind:       memory.Kind,
		Title:      memory.Title,
		Body:       memory.Body,
		MediaKey:   memory.MediaKey,
		CapturedAt: memory.CapturedAt.UnixMilli(),
		UpdatedAt:  memory.UpdatedAt.UnixMilli(),
	}
}

func milestoneToResponse(milestone memoriesstorage.Milestone) milestoneResponse {
	return milestoneResponse{
		ID:         milestone.ID,
		MemoryID:   milestone.MemoryID,
		ChildID:    milestone.ChildID,
		Label:      milestone.Label,
		Confidence: milestone.Confidence,
		DetectedAt: milestone.DetectedAt.UnixMilli(),
	}
}

func draftFromRequest(payload memoryRequest) memoriesdomain.Draft {
	return memoriesdomain.Draft{
		FamilyID:   payload.FamilyID,
		ChildID:    payload.ChildID,
		Kind:       payload.Kind,
		Title:      payload.Title,
		Body:       payload.Body,
		MediaKey:   payload.MediaKey,
		CapturedAt: payload.CapturedAt,
	}
}

func (h *handler) handleCaptureMemory(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload memoryRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	memory, err := h.memories.Capture(r.Context(), viewer.UserID, draftFromRequest(payload))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, memoryToResponse(memory))
}

func (h *handler) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	memory, err := h.memories.Get(r.Context(), viewer.UserID, r.PathValue("memoryID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, memoryToResponse(memory))
}

func (h *handler) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	var payload memoryRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteBadRequest(w, "invalid json body")
		return
	}
	memory, err := h.memories.Update(r.Context(), viewer.UserID, r.PathValue("memoryID"), draftFromRequest(payload))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, memoryToResponse(memory))
}

func (h *handler) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	if err := h.memories.Delete(r.Context(), viewer.UserID, r.PathValue("memoryID")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleListMemories(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.WriteBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	memories, err := h.memories.ListByFamily(r.Context(), viewer.UserID, r.PathValue("familyID"), limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	rendered := make([]memoryResponse, 0, len(memories))
	for _, memory := range memories {
		rendered = append(rendered, memoryToResponse(memory))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]memoryResponse{"memories": rendered})
}

func (h *handler) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	milestones, err := h.memories.ListMilestones(r.Context(), viewer.UserID, r.PathValue("familyID"), r.PathValue("childID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	rendered := make([]milestoneResponse, 0, len(milestones))
	for _, milestone := range milestones {
		rendered = append(rendered, milestoneToResponse(milestone))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]milestoneResponse{"milestones": rendered})
}
