package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keepsakehq/keepsake/internal/services/memories/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/memories.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	memory := storage.Memory{
		ID:         "memory-1",
		FamilyID:   "family-1",
		ChildID:    "child-1",
		AuthorID:   "user-1",
		Kind:       "text",
		Title:      "First words",
		Body:       "June said mama today",
		CapturedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.PutMemory(ctx, memory); err != nil {
		t.Fatalf("put memory: %v", err)
	}

	got, err := store.GetMemory(ctx, "memory-1")
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if got.Body != "June said mama today" {
		t.Errorf("memory.Body = %q, want %q", got.Body, "June said mama today")
	}
	if !got.CapturedAt.Equal(now) {
		t.Errorf("memory.CapturedAt = %v, want %v", got.CapturedAt, now)
	}

	memory.Body = "June said mama and papa today"
	memory.UpdatedAt = now.Add(time.Hour)
	if err := store.PutMemory(ctx, memory); err != nil {
		t.Fatalf("upsert memory: %v", err)
	}
	updated, err := store.GetMemory(ctx, "memory-1")
	if err != nil {
		t.Fatalf("get updated memory: %v", err)
	}
	if updated.Body != "June said mama and papa today" {
		t.Errorf("memory.Body after update = %q", updated.Body)
	}

	if err := store.DeleteMemory(ctx, "memory-1"); err != nil {
		t.Fatalf("delete memory: %v", err)
	}
	if _, err := store.GetMemory(ctx, "memory-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get deleted memory error = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.DeleteMemory(ctx, "memory-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("delete deleted memory error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestMemoryListingOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"memory-1", "memory-2", "memory-3"} {
		memory := storage.Memory{
			ID:         id,
			FamilyID:   "family-1",
			ChildID:    "child-1",
			AuthorID:   "user-1",
			Kind:       "text",
			Body:       "note",
			CapturedAt: now.Add(time.Duration(i) * time.Hour),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := store.PutMemory(ctx, memory); err != nil {
			t.Fatalf("put memory %s: %v", id, err)
		}
	}

	byFamily, err := store.ListMemoriesByFamily(ctx, "family-1", 10)
	if err != nil {
		t.Fatalf("list by family: %v", err)
	}
	if len(byFamily) != 3 {
		t.Fatalf("family memory count = %d, want 3", len(byFamily))
	}
	if byFamily[0].ID != "memory-3" {
		t.Errorf("newest memory = %s, want memory-3", byFamily[0].ID)
	}

	limited, err := store.ListMemoriesByChild(ctx, "child-1", 2)
	if err != nil {
		t.Fatalf("list by child: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited child memory count = %d, want 2", len(limited))
	}
}

func TestMilestoneRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	milestone := storage.Milestone{
		ID:         "milestone-1",
		MemoryID:   "memory-1",
		ChildID:    "child-1",
		Label:      "first_steps",
		Confidence: 0.92,
		DetectedAt: now,
	}
	if err := store.PutMilestone(ctx, milestone); err != nil {
		t.Fatalf("put milestone: %v", err)
	}

	byChild, err := store.ListMilestonesByChild(ctx, "child-1")
	if err != nil {
		t.Fatalf("list milestones by child: %v", err)
	}
	if len(byChild) != 1 || byChild[0].Label != "first_steps" {
		t.Errorf("ListMilestonesByChild() = %v, want one first_steps milestone", byChild)
	}
	if byChild[0].Confidence != 0.92 {
		t.Errorf("milestone.Confidence = %v, want 0.92", byChild[0].Confidence)
	}

	byMemory, err := store.ListMilestonesByMemory(ctx, "memory-1")
	if err != nil {
		t.Fatalf("list milestones by memory: %v", err)
	}
	if len(byMemory) != 1 {
		t.Errorf("memory milestone count = %d, want 1", len(byMemory))
	}
}

func newOutboxEvent(id string, dedupe string, now time.Time) storage.OutboxEvent {
	return storage.OutboxEvent{
		ID:            id,
		EventType:     "memory.captured",
		PayloadJSON:   `{"memory_id":"memory-1"}`,
		DedupeKey:     dedupe,
		Status:        storage.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestOutboxEnqueueDedupes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	if err := store.EnqueueOutboxEvent(ctx, newOutboxEvent("event-1", "key-1", now)); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if err := store.EnqueueOutboxEvent(ctx, newOutboxEvent("event-2", "key-1", now)); err != nil {
		t.Fatalf("enqueue duplicate: %v", err)
	}

	if _, err := store.GetOutboxEvent(ctx, "event-1"); err != nil {
		t.Errorf("get first event error = %v", err)
	}
	if _, err := store.GetOutboxEvent(ctx, "event-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get deduped event error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestOutboxLeaseLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	if err := store.EnqueueOutboxEvent(ctx, newOutboxEvent("event-1", "key-1", now)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	future := newOutboxEvent("event-2", "key-2", now)
	future.NextAttemptAt = now.Add(time.Hour)
	if err := store.EnqueueOutboxEvent(ctx, future); err != nil {
		t.Fatalf("enqueue future: %v", err)
	}

	leased, err := store.LeaseOutboxEvents(ctx, "worker-1", 10, now, time.Minute)
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if len(leased) != 1 || leased[0].ID != "event-1" {
		t.Fatalf("leased = %v, want [event-1]", leased)
	}
	if leased[0].Status != storage.OutboxStatusLeased {
		t.Errorf("leased status = %q, want %q", leased[0].Status, storage.OutboxStatusLeased)
	}
	if leased[0].LeaseOwner != "worker-1" {
		t.Errorf("lease owner = %q, want worker-1", leased[0].LeaseOwner)
	}

	// A second worker cannot lease a held event.
	other, err := store.LeaseOutboxEvents(ctx, "worker-2", 10, now, time.Minute)
	if err != nil {
		t.Fatalf("second lease: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("second worker leased %v, want none", other)
	}

	if err := store.MarkOutboxSucceeded(ctx, "event-1", "worker-1", now.Add(time.Second)); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	done, err := store.GetOutboxEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("get done event: %v", err)
	}
	if done.Status != storage.OutboxStatusSucceeded {
		t.Errorf("done status = %q, want %q", done.Status, storage.OutboxStatusSucceeded)
	}

	// Wrong consumer cannot ack.
	if err := store.MarkOutboxSucceeded(ctx, "event-1", "worker-2", now); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("wrong consumer ack error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestOutboxExpiredLeaseIsReclaimable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	if err := store.EnqueueOutboxEvent(ctx, newOutboxEvent("event-1", "key-1", now)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := store.LeaseOutboxEvents(ctx, "worker-1", 10, now, time.Minute); err != nil {
		t.Fatalf("lease: %v", err)
	}

	// After the lease expires another worker picks the event up.
	later := now.Add(2 * time.Minute)
	reclaimed, err := store.LeaseOutboxEvents(ctx, "worker-2", 10, later, time.Minute)
	if err != nil {
		t.Fatalf("reclaim lease: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0].LeaseOwner != "worker-2" {
		t.Fatalf("reclaimed = %v, want event-1 owned by worker-2", reclaimed)
	}
}

func TestOutboxRetryAndDead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

	if err := store.EnqueueOutboxEvent(ctx, newOutboxEvent("event-1", "key-1", now)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := store.LeaseOutboxEvents(ctx, "worker-1", 10, now, time.Minute); err != nil {
		t.Fatalf("lease: %v", err)
	}

	retryAt := now.Add(30 * time.Second)
	if err := store.MarkOutboxRetry(ctx, "event-1", "worker-1", retryAt, "detector timeout"); err != nil {
		t.Fatalf("mark retry: %v", err)
	}
	event, err := store.GetOutboxEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.Status != storage.OutboxStatusPending {
		t.Errorf("retry status = %q, want %q", event.Status, storage.OutboxStatusPending)
	}
	if event.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", event.AttemptCount)
	}
	if event.LastError != "detector timeout" {
		t.Errorf("last error = %q, want %q", event.LastError, "detector timeout")
	}
	if !event.NextAttemptAt.Equal(retryAt) {
		t.Errorf("next attempt at = %v, want %v", event.NextAttemptAt, retryAt)
	}

	// Not due before the backoff elapses.
	early, err := store.LeaseOutboxEvents(ctx, "worker-1", 10, now.Add(10*time.Second), time.Minute)
	if err != nil {
		t.Fatalf("early lease: %v", err)
	}
	if len(early) != 0 {
		t.Errorf("early lease = %v, want none", early)
	}

	if _, err := store.LeaseOutboxEvents(ctx, "worker-1", 10, retryAt, time.Minute); err != nil {
		t.Fatalf("due lease: %v", err)
	}
	if err := store.MarkOutboxDead(ctx, "event-1", "worker-1", "payload malformed", retryAt.Add(time.Second)); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	dead, err := store.GetOutboxEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("get dead event: %v", err)
	}
	if dead.Status != storage.OutboxStatusDead {
		t.Errorf("dead status = %q, want %q", dead.Status, storage.OutboxStatusDead)
	}
	if dead.AttemptCount != 2 {
		t.Errorf("dead attempt count = %d, want 2", dead.AttemptCount)
	}
}
