// Package storage defines persistence contracts for memory state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested memory record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// Memory stores one captured family moment.
type Memory struct {
	ID         string
	FamilyID   string
	ChildID    string
	AuthorID   string
	Kind       string
	Title      string
	Body       string
	MediaKey   string
	CapturedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Milestone stores one detected milestone for a child.
type Milestone struct {
	ID         string
	MemoryID   string
	ChildID    string
	Label      string
	Confidence float64
	DetectedAt time.Time
}

// Outbox event lifecycle states.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusLeased    = "leased"
	OutboxStatusSucceeded = "succeeded"
	OutboxStatusDead      = "dead"
)

// OutboxEvent is one durable processing event awaiting worker pickup.
type OutboxEvent struct {
	ID             string
	EventType      string
	PayloadJSON    string
	DedupeKey      string
	Status         string
	AttemptCount   int32
	NextAttemptAt  time.Time
	LeaseOwner     string
	LeaseExpiresAt time.Time
	LastError      string
	ProcessedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MemoryStore persists memory entries.
type MemoryStore interface {
	PutMemory(ctx context.Context, memory Memory) error
	GetMemory(ctx context.Context, id string) (Memory, error)
	ListMemoriesByFamily(ctx context.Context, familyID string, limit int) ([]Memory, error)
	ListMemoriesByChild(ctx context.Context, childID string, limit int) ([]Memory, error)
	DeleteMemory(ctx context.Context, id string) error
}

// MilestoneStore persists detected milestone records.
type MilestoneStore interface {
	PutMilestone(ctx context.Context, milestone Milestone) error
	ListMilestonesByChild(ctx context.Context, childID string) ([]Milestone, error)
	ListMilestonesByMemory(ctx context.Context, memoryID string) ([]Milestone, error)
}

// OutboxStore persists processing events with lease semantics. Events with a
// duplicate dedupe key are dropped on enqueue.
type OutboxStore interface {
	EnqueueOutboxEvent(ctx context.Context, event OutboxEvent) error
	GetOutboxEvent(ctx context.Context, id string) (OutboxEvent, error)
	// LeaseOutboxEvents leases due events for one worker. Due means pending
	// with next_attempt_at elapsed, or leased with an expired lease.
	LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]OutboxEvent, error)
	MarkOutboxSucceeded(ctx context.Context, id string, consumer string, processedAt time.Time) error
	MarkOutboxRetry(ctx context.Context, id string, consumer string, nextAttemptAt time.Time, lastError string) error
	MarkOutboxDead(ctx context.Context, id string, consumer string, lastError string, processedAt time.Time) error
}
