package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keepsakehq/keepsake/internal/services/memories/storage"
)

const outboxColumns = `
	id,
	event_type,
	payload_json,
	dedupe_key,
	status,
	attempt_count,
	next_attempt_at,
	lease_owner,
	lease_expires_at,
	last_error,
	processed_at,
	created_at,
	updated_at`

// EnqueueOutboxEvent inserts a processing event. Duplicate dedupe keys are
// dropped silently so re-captures of the same revision collapse.
func (s *Store) EnqueueOutboxEvent(ctx context.Context, event storage.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO memory_outbox (id, event_type, payload_json, dedupe_key, status, attempt_count, next_attempt_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
ON CONFLICT(dedupe_key) DO NOTHING`,
		event.ID, event.EventType, event.PayloadJSON, event.DedupeKey, event.Status,
		toMillis(event.NextAttemptAt), toMillis(event.CreatedAt), toMillis(event.UpdatedAt))
	if err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// GetOutboxEvent returns one outbox event by id.
func (s *Store) GetOutboxEvent(ctx context.Context, id string) (storage.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return storage.OutboxEvent{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+outboxColumns+`
FROM memory_outbox WHERE id = ?`, id)
	event, err := scanOutboxEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.OutboxEvent{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.OutboxEvent{}, fmt.Errorf("get outbox event: %w", err)
	}
	return event, nil
}

// LeaseOutboxEvents leases due outbox events for one worker.
//
// Due means pending with next_attempt_at elapsed, or leased with an expired
// lease (a crashed worker's events become due again after the lease TTL).
func (s *Store) LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]storage.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return nil, fmt.Errorf("consumer is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if leaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	leaseExpiresAt := now.Add(leaseTTL)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start lease transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
SELECT id
FROM memory_outbox
WHERE (
	(status = ? AND next_attempt_at <= ?)
	OR
	(status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?)
)
ORDER BY next_attempt_at ASC, created_at ASC, id ASC
LIMIT ?`,
		storage.OutboxStatusPending, toMillis(now),
		storage.OutboxStatusLeased, toMillis(now),
		limit)
	if err != nil {
		return nil, fmt.Errorf("select lease candidates: %w", err)
	}
	candidateIDs := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan lease candidate: %w", scanErr)
		}
		candidateIDs = append(candidateIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate lease candidates: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close lease candidates: %w", err)
	}
	if len(candidateIDs) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit empty lease transaction: %w", err)
		}
		return []storage.OutboxEvent{}, nil
	}

	leased := make([]storage.OutboxEvent, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		result, updateErr := tx.ExecContext(ctx, `
UPDATE memory_outbox
SET status = ?, lease_owner = ?, lease_expires_at = ?, updated_at = ?
WHERE id = ?
AND (
	(status = ? AND next_attempt_at <= ?)
	OR
	(status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?)
)`,
			storage.OutboxStatusLeased, consumer, toMillis(leaseExpiresAt), toMillis(now),
			id,
			storage.OutboxStatusPending, toMillis(now),
			storage.OutboxStatusLeased, toMillis(now))
		if updateErr != nil {
			return nil, fmt.Errorf("lease outbox event %s: %w", id, updateErr)
		}
		rowsAffected, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			return nil, fmt.Errorf("lease rows affected for %s: %w", id, rowsErr)
		}
		if rowsAffected == 0 {
			continue
		}

		row := tx.QueryRowContext(ctx, `
SELECT `+outboxColumns+`
FROM memory_outbox WHERE id = ?`, id)
		event, scanErr := scanOutboxEvent(row.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan leased outbox event %s: %w", id, scanErr)
		}
		leased = append(leased, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease transaction: %w", err)
	}
	return leased, nil
}

// MarkOutboxSucceeded marks one leased outbox event as succeeded.
func (s *Store) MarkOutboxSucceeded(ctx context.Context, id string, consumer string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	processedAt = processedAt.UTC()
	return s.markLeased(ctx, id, consumer, `
UPDATE memory_outbox
SET status = ?, lease_owner = '', lease_expires_at = NULL, last_error = '', processed_at = ?, updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?`,
		storage.OutboxStatusSucceeded, toMillis(processedAt), toMillis(processedAt),
		id, storage.OutboxStatusLeased, consumer)
}

// MarkOutboxRetry returns one leased outbox event to pending for a later
// attempt, incrementing its attempt count.
func (s *Store) MarkOutboxRetry(ctx context.Context, id string, consumer string, nextAttemptAt time.Time, lastError string) error {
	if nextAttemptAt.IsZero() {
		return fmt.Errorf("next attempt at is required")
	}
	now := time.Now().UTC()
	return s.markLeased(ctx, id, consumer, `
UPDATE memory_outbox
SET status = ?, attempt_count = attempt_count + 1, next_attempt_at = ?, lease_owner = '', lease_expires_at = NULL, last_error = ?, processed_at = NULL, updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?`,
		storage.OutboxStatusPending, toMillis(nextAttemptAt.UTC()), strings.TrimSpace(lastError), toMillis(now),
		id, storage.OutboxStatusLeased, consumer)
}

// MarkOutboxDead marks one leased outbox event as dead.
func (s *Store) MarkOutboxDead(ctx context.Context, id string, consumer string, lastError string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	processedAt = processedAt.UTC()
	return s.markLeased(ctx, id, consumer, `
UPDATE memory_outbox
SET status = ?, attempt_count = attempt_count + 1, lease_owner = '', lease_expires_at = NULL, last_error = ?, processed_at = ?, updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?`,
		storage.OutboxStatusDead, strings.TrimSpace(lastError), toMillis(processedAt), toMillis(processedAt),
		id, storage.OutboxStatusLeased, consumer)
}

func (s *Store) markLeased(ctx context.Context, id string, consumer string, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(consumer) == "" {
		return fmt.Errorf("consumer is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark outbox event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox event rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type outboxScanner func(dest ...any) error

func scanOutboxEvent(scan outboxScanner) (storage.OutboxEvent, error) {
	var (
		event          storage.OutboxEvent
		nextAttemptAt  int64
		leaseExpiresAt sql.NullInt64
		processedAt    sql.NullInt64
		createdAt      int64
		updatedAt      int64
	)
	err := scan(&event.ID, &event.EventType, &event.PayloadJSON, &event.DedupeKey,
		&event.Status, &event.AttemptCount, &nextAttemptAt, &event.LeaseOwner,
		&leaseExpiresAt, &event.LastError, &processedAt, &createdAt, &updatedAt)
	if err != nil {
		return storage.OutboxEvent{}, err
	}
	event.NextAttemptAt = fromMillis(nextAttemptAt)
	if leaseExpiresAt.Valid {
		event.LeaseExpiresAt = fromMillis(leaseExpiresAt.Int64)
	}
	if processedAt.Valid {
		event.ProcessedAt = fromMillis(processedAt.Int64)
	}
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}
