package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/keepsakehq/keepsake/internal/services/ai"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriesstorage "github.com/keepsakehq/keepsake/internal/services/memories/storage"
)

type fakeDetector struct {
	detections []ai.Detection
	err        error
	gotText    string
}

func (f *fakeDetector) DetectMilestones(_ context.Context, text string) ([]ai.Detection, error) {
	f.gotText = text
	return f.detections, f.err
}

type fakeMilestoneStore struct {
	milestones []memoriesstorage.Milestone
}

func (f *fakeMilestoneStore) PutMilestone(_ context.Context, milestone memoriesstorage.Milestone) error {
	f.milestones = append(f.milestones, milestone)
	return nil
}

func (f *fakeMilestoneStore) ListMilestonesByChild(context.Context, string) ([]memoriesstorage.Milestone, error) {
	return f.milestones, nil
}

func (f *fakeMilestoneStore) ListMilestonesByMemory(context.Context, string) ([]memoriesstorage.Milestone, error) {
	return f.milestones, nil
}

func capturedEvent(t *testing.T, payload memoriesdomain.CapturedPayload) memoriesstorage.OutboxEvent {
	t.Helper()
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return memoriesstorage.OutboxEvent{
		ID:          "event-1",
		EventType:   memoriesdomain.EventMemoryCaptured,
		PayloadJSON: string(encoded),
	}
}

func TestHandleStoresMilestones(t *testing.T) {
	detector := &fakeDetector{detections: []ai.Detection{
		{Label: "first_steps", Confidence: 0.9},
		{Label: "first_words", Confidence: 0.7},
	}}
	store := &fakeMilestoneStore{}
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	handler := NewMilestoneHandler(detector, store, func() time.Time { return now })

	event := capturedEvent(t, memoriesdomain.CapturedPayload{
		MemoryID: "memory-1",
		FamilyID: "family-1",
		ChildID:  "child-1",
		Kind:     "text",
		Title:    "Big day",
		Body:     "June took her first steps and said mama!",
	})
	if err := handler.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.milestones) != 2 {
		t.Fatalf("milestone count = %d, want 2", len(store.milestones))
	}
	first := store.milestones[0]
	if first.MemoryID != "memory-1" || first.ChildID != "child-1" {
		t.Errorf("milestone identity = %s/%s, want memory-1/child-1", first.MemoryID, first.ChildID)
	}
	if first.Label != "first_steps" {
		t.Errorf("milestone.Label = %q, want %q", first.Label, "first_steps")
	}
	if !first.DetectedAt.Equal(now) {
		t.Errorf("milestone.DetectedAt = %v, want %v", first.DetectedAt, now)
	}
	if detector.gotText == "" {
		t.Error("detector received empty text")
	}
}

func TestHandleSkipsWithoutChild(t *testing.T) {
	detector := &fakeDetector{detections: []ai.Detection{{Label: "first_steps", Confidence: 0.9}}}
	store := &fakeMilestoneStore{}
	handler := NewMilestoneHandler(detector, store, nil)

	event := capturedEvent(t, memoriesdomain.CapturedPayload{
		MemoryID: "memory-1",
		FamilyID: "family-1",
		Kind:     "text",
		Body:     "A lovely family picnic",
	})
	if err := handler.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(store.milestones) != 0 {
		t.Errorf("milestone count = %d, want 0", len(store.milestones))
	}
	if detector.gotText != "" {
		t.Error("detector was called for an event without a child")
	}
}

func TestHandleMalformedPayloadIsPermanent(t *testing.T) {
	handler := NewMilestoneHandler(&fakeDetector{}, &fakeMilestoneStore{}, nil)

	event := memoriesstorage.OutboxEvent{
		ID:          "event-1",
		EventType:   memoriesdomain.EventMemoryCaptured,
		PayloadJSON: "{not json",
	}
	err := handler.Handle(context.Background(), event)
	if err == nil {
		t.Fatal("Handle() error = nil, want permanent error")
	}
	if !IsPermanent(err) {
		t.Errorf("Handle() error = %v, want permanent", err)
	}
}

func TestHandleDetectorErrorIsTransient(t *testing.T) {
	detector := &fakeDetector{err: errors.New("endpoint unreachable")}
	handler := NewMilestoneHandler(detector, &fakeMilestoneStore{}, nil)

	event := capturedEvent(t, memoriesdomain.CapturedPayload{
		MemoryID: "memory-1",
		ChildID:  "child-1",
		Body:     "first steps",
	})
	err := handler.Handle(context.Background(), event)
	if err == nil {
		t.Fatal("Handle() error = nil, want transient error")
	}
	if IsPermanent(err) {
		t.Errorf("Handle() error = %v marked permanent, want transient", err)
	}
}

func TestPermanentWrapping(t *testing.T) {
	base := errors.New("boom")
	wrapped := Permanent(base)
	if !IsPermanent(wrapped) {
		t.Error("IsPermanent(Permanent(err)) = false")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(Permanent(err), err) = false")
	}
	if IsPermanent(base) {
		t.Error("IsPermanent(plain err) = true")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) != nil")
	}
}
