package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
	"github.com/keepsakehq/keepsake/internal/platform/id"
	familydomain "github.com/keepsakehq/keepsake/internal/services/family/domain"
	"github.com/keepsakehq/keepsake/internal/services/memories/storage"
)

// EventMemoryCaptured is enqueued whenever a memory is created or updated.
const EventMemoryCaptured = "memory.captured"

const defaultListLimit = 100

// CapturedPayload is the outbox payload for memory.captured events.
type CapturedPayload struct {
	MemoryID   string `json:"memory_id"`
	FamilyID   string `json:"family_id"`
	ChildID    string `json:"child_id,omitempty"`
	Kind       string `json:"kind"`
	Body       string `json:"body,omitempty"`
	Title      string `json:"title,omitempty"`
	CapturedAt int64  `json:"captured_at"`
}

// Store is the persistence surface the memories service depends on.
type Store interface {
	storage.MemoryStore
	storage.MilestoneStore
	storage.OutboxStore
}

// MembershipResolver resolves a user's role in a family.
type MembershipResolver interface {
	Membership(ctx context.Context, userID string, familyID string) (familydomain.Role, error)
}

// Service coordinates memory capture, listing, and milestone reads.
type Service struct {
	store       Store
	members     MembershipResolver
	clock       func() time.Time
	idGenerator func() (string, error)
}

// Config tunes service behavior; zero values select defaults.
type Config struct {
	Clock       func() time.Time
	IDGenerator func() (string, error)
}

// NewService creates a memories service backed by store. Membership checks
// delegate to the family service.
func NewService(store Store, members MembershipResolver, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	return &Service{
		store:       store,
		members:     members,
		clock:       cfg.Clock,
		idGenerator: cfg.IDGenerator,
	}
}

// Capture validates a draft, stores the memory, and enqueues a processing
// event for milestone detection.
func (s *Service) Capture(ctx context.Context, authorID string, draft Draft) (storage.Memory, error) {
	role, err := s.members.Membership(ctx, authorID, draft.FamilyID)
	if err != nil {
		return storage.Memory{}, err
	}
	if !role.CanRecordMemories() {
		return storage.Memory{}, familydomain.ErrRoleDisallows
	}
	kind, draft, err := validateDraft(draft)
	if err != nil {
		return storage.Memory{}, err
	}

	memoryID, err := s.idGenerator()
	if err != nil {
		return storage.Memory{}, fmt.Errorf("generate memory id: %w", err)
	}
	now := s.clock().UTC()
	capturedAt := now
	if draft.CapturedAt > 0 {
		capturedAt = time.UnixMilli(draft.CapturedAt).UTC()
	}
	memory := storage.Memory{
		ID:         memoryID,
		FamilyID:   draft.FamilyID,
		ChildID:    draft.ChildID,
		AuthorID:   authorID,
		Kind:       string(kind),
		Title:      draft.Title,
		Body:       draft.Body,
		MediaKey:   draft.MediaKey,
		CapturedAt: capturedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.PutMemory(ctx, memory); err != nil {
		return storage.Memory{}, fmt.Errorf("put memory: %w", err)
	}
	if err := s.enqueueCaptured(ctx, memory, now); err != nil {
		return storage.Memory{}, err
	}
	return memory, nil
}

// Update rewrites a memory's content. Only the author may update, and the
// change re-enqueues milestone detection.
func (s *Service) Update(ctx context.Context, userID string, memoryID string, draft Draft) (storage.Memory, error) {
	memory, err := s.getAuthorized(ctx, userID, memoryID)
	if err != nil {
		return storage.Memory{}, err
	}
	if memory.AuthorID != userID {
		return storage.Memory{}, ErrNotAuthor
	}
	draft.FamilyID = memory.FamilyID
	kind, draft, err := validateDraft(draft)
	if err != nil {
		return storage.Memory{}, err
	}

	now := s.clock().UTC()
	memory.ChildID = draft.ChildID
	memory.Kind = string(kind)
	memory.Title = draft.Title
	memory.Body = draft.Body
	memory.MediaKey = draft.MediaKey
	if draft.CapturedAt > 0 {
		memory.CapturedAt = time.UnixMilli(draft.CapturedAt).UTC()
	}
	memory.UpdatedAt = now
	if err := s.store.PutMemory(ctx, memory); err != nil {
		return storage.Memory{}, fmt.Errorf("put memory: %w", err)
	}
	if err := s.enqueueCaptured(ctx, memory, now); err != nil {
		return storage.Memory{}, err
	}
	return memory, nil
}

// Delete removes a memory. Only the author may delete.
func (s *Service) Delete(ctx context.Context, userID string, memoryID string) error {
	memory, err := s.getAuthorized(ctx, userID, memoryID)
	if err != nil {
		return err
	}
	if memory.AuthorID != userID {
		return ErrNotAuthor
	}
	if err := s.store.DeleteMemory(ctx, memoryID); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// Get resolves a memory for a member of its family.
func (s *Service) Get(ctx context.Context, userID string, memoryID string) (storage.Memory, error) {
	return s.getAuthorized(ctx, userID, memoryID)
}

// ListByFamily returns recent memories for a family the user belongs to.
func (s *Service) ListByFamily(ctx context.Context, userID string, familyID string, limit int) ([]storage.Memory, error) {
	if _, err := s.members.Membership(ctx, userID, familyID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	memories, err := s.store.ListMemoriesByFamily(ctx, familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return memories, nil
}

// ListMilestones returns detected milestones for a child inside a family the
// user belongs to.
func (s *Service) ListMilestones(ctx context.Context, userID string, familyID string, childID string) ([]storage.Milestone, error) {
	if _, err := s.members.Membership(ctx, userID, familyID); err != nil {
		return nil, err
	}
	milestones, err := s.store.ListMilestonesByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	return milestones, nil
}

func (s *Service) getAuthorized(ctx context.Context, userID string, memoryID string) (storage.Memory, error) {
	memory, err := s.store.GetMemory(ctx, memoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Memory{}, apperrors.New(apperrors.CodeNotFound, "memory not found")
		}
		return storage.Memory{}, fmt.Errorf("get memory: %w", err)
	}
	if _, err := s.members.Membership(ctx, userID, memory.FamilyID); err != nil {
		return storage.Memory{}, err
	}
	return memory, nil
}

// enqueueCaptured records a memory.captured outbox event. The dedupe key is
// derived from the memory id and its update time so re-captures of the same
// revision collapse while genuine updates re-detect.
func (s *Service) enqueueCaptured(ctx context.Context, memory storage.Memory, now time.Time) error {
	payload := CapturedPayload{
		MemoryID:   memory.ID,
		FamilyID:   memory.FamilyID,
		ChildID:    memory.ChildID,
		Kind:       memory.Kind,
		Body:       memory.Body,
		Title:      memory.Title,
		CapturedAt: memory.CapturedAt.UnixMilli(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode captured payload: %w", err)
	}
	eventID, err := s.idGenerator()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	event := storage.OutboxEvent{
		ID:            eventID,
		EventType:     EventMemoryCaptured,
		PayloadJSON:   string(encoded),
		DedupeKey:     fmt.Sprintf("%s:%s:%d", EventMemoryCaptured, memory.ID, memory.UpdatedAt.UnixMilli()),
		Status:        storage.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.EnqueueOutboxEvent(ctx, event); err != nil {
		return fmt.Errorf("enqueue captured event: %w", err)
	}
	return nil
}
