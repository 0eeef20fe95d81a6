// Package sqlite implements memory persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/keepsakehq/keepsake/internal/platform/storage/sqlitemigrate"
	"github.com/keepsakehq/keepsake/internal/services/memories/storage"
	"github.com/keepsakehq/keepsake/internal/services/memories/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements memory persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// DB returns the raw database handle for callers that share the file.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens a memories SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutMemory upserts a memory entry.
func (s *Store) PutMemory(ctx context.Context, memory storage.Memory) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO memories (id, family_id, child_id, author_id, kind, title, body, media_key, captured_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    child_id = excluded.child_id,
    kind = excluded.kind,
    title = excluded.title,
    body = excluded.body,
    media_key = excluded.media_key,
    captured_at = excluded.captured_at,
    updated_at = excluded.updated_at`,
		memory.ID, memory.FamilyID, nullable(memory.ChildID), memory.AuthorID, memory.Kind,
		memory.Title, memory.Body, memory.MediaKey,
		toMillis(memory.CapturedAt), toMillis(memory.CreatedAt), toMillis(memory.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}

// GetMemory loads a memory by id.
func (s *Store) GetMemory(ctx context.Context, id string) (storage.Memory, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, family_id, child_id, author_id, kind, title, body, media_key, captured_at, created_at, updated_at
FROM memories WHERE id = ?`, id)
	memory, err := scanMemory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Memory{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Memory{}, fmt.Errorf("scan memory: %w", err)
	}
	return memory, nil
}

// ListMemoriesByFamily returns recent memories for a family, newest first.
func (s *Store) ListMemoriesByFamily(ctx context.Context, familyID string, limit int) ([]storage.Memory, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, family_id, child_id, author_id, kind, title, body, media_key, captured_at, created_at, updated_at
FROM memories WHERE family_id = ?
ORDER BY captured_at DESC, id LIMIT ?`, familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories by family: %w", err)
	}
	return collectMemories(rows)
}

// ListMemoriesByChild returns recent memories for a child, newest first.
func (s *Store) ListMemoriesByChild(ctx context.Context, childID string, limit int) ([]storage.Memory, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, family_id, child_id, author_id, kind, title, body, media_key, captured_at, created_at, updated_at
FROM memories WHERE child_id = ?
ORDER BY captured_at DESC, id LIMIT ?`, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories by child: %w", err)
	}
	return collectMemories(rows)
}

// DeleteMemory removes a memory by id.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete memory rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutMilestone persists a detected milestone record.
func (s *Store) PutMilestone(ctx context.Context, milestone storage.Milestone) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO milestones (id, memory_id, child_id, label, confidence, detected_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    label = excluded.label,
    confidence = excluded.confidence,
    detected_at = excluded.detected_at`,
		milestone.ID, milestone.MemoryID, milestone.ChildID, milestone.Label,
		milestone.Confidence, toMillis(milestone.DetectedAt))
	if err != nil {
		return fmt.Errorf("upsert milestone: %w", err)
	}
	return nil
}

// ListMilestonesByChild returns milestones for a child, newest first.
func (s *Store) ListMilestonesByChild(ctx context.Context, childID string) ([]storage.Milestone, error) {
	return s.listMilestones(ctx, `
SELECT id, memory_id, child_id, label, confidence, detected_at
FROM milestones WHERE child_id = ? ORDER BY detected_at DESC, id`, childID)
}

// ListMilestonesByMemory returns milestones detected from one memory.
func (s *Store) ListMilestonesByMemory(ctx context.Context, memoryID string) ([]storage.Milestone, error) {
	return s.listMilestones(ctx, `
SELECT id, memory_id, child_id, label, confidence, detected_at
FROM milestones WHERE memory_id = ? ORDER BY detected_at DESC, id`, memoryID)
}

func (s *Store) listMilestones(ctx context.Context, query string, arg string) ([]storage.Milestone, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []storage.Milestone
	for rows.Next() {
		var (
			milestone  storage.Milestone
			detectedAt int64
		)
		if err := rows.Scan(&milestone.ID, &milestone.MemoryID, &milestone.ChildID,
			&milestone.Label, &milestone.Confidence, &detectedAt); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestone.DetectedAt = fromMillis(detectedAt)
		milestones = append(milestones, milestone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return milestones, nil
}

type memoryScanner func(dest ...any) error

func scanMemory(scan memoryScanner) (storage.Memory, error) {
	var (
		memory     storage.Memory
		childID    sql.NullString
		capturedAt int64
		createdAt  int64
		updatedAt  int64
	)
	err := scan(&memory.ID, &memory.FamilyID, &childID, &memory.AuthorID, &memory.Kind,
		&memory.Title, &memory.Body, &memory.MediaKey, &capturedAt, &createdAt, &updatedAt)
	if err != nil {
		return storage.Memory{}, err
	}
	memory.ChildID = childID.String
	memory.CapturedAt = fromMillis(capturedAt)
	memory.CreatedAt = fromMillis(createdAt)
	memory.UpdatedAt = fromMillis(updatedAt)
	return memory, nil
}

func collectMemories(rows *sql.Rows) ([]storage.Memory, error) {
	defer rows.Close()
	var memories []storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}
	return memories, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
