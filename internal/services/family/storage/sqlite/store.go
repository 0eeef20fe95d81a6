// Package sqlite implements family persistence over SQLite.
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
	"github.com/keepsakehq/keepsake/internal/services/family/storage"
	"github.com/keepsakehq/keepsake/internal/services/family/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements family persistence over SQLite.
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

// Open opens a family SQLite store and applies bundled migrations.
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

// PutFamily persists a family record.
func (s *Store) PutFamily(ctx context.Context, family storage.Family) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO families (id, name, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		family.ID, family.Name, toMillis(family.CreatedAt), toMillis(family.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert family: %w", err)
	}
	return nil
}

// GetFamily loads a family by id.
func (s *Store) GetFamily(ctx context.Context, id string) (storage.Family, error) {
	var (
		family    storage.Family
		createdAt int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, created_at, updated_at FROM families WHERE id = ?`, id).
		Scan(&family.ID, &family.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Family{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Family{}, fmt.Errorf("scan family: %w", err)
	}
	family.CreatedAt = fromMillis(createdAt)
	family.UpdatedAt = fromMillis(updatedAt)
	return family, nil
}

// ListFamiliesByUser returns families where the user is a member.
func (s *Store) ListFamiliesByUser(ctx context.Context, userID string) ([]storage.Family, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT f.id, f.name, f.created_at, f.updated_at
FROM families f
JOIN family_members m ON m.family_id = f.id
WHERE m.user_id = ?
ORDER BY f.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []storage.Family
	for rows.Next() {
		var (
			family    storage.Family
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&family.ID, &family.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		family.CreatedAt = fromMillis(createdAt)
		family.UpdatedAt = fromMillis(updatedAt)
		families = append(families, family)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate families: %w", err)
	}
	return families, nil
}

// PutMember persists a membership record.
func (s *Store) PutMember(ctx context.Context, member storage.Member) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO family_members (family_id, user_id, role, joined_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(family_id, user_id) DO UPDATE SET role = excluded.role`,
		member.FamilyID, member.UserID, member.Role, toMillis(member.JoinedAt))
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// GetMember loads one membership record.
func (s *Store) GetMember(ctx context.Context, familyID string, userID string) (storage.Member, error) {
	var (
		member   storage.Member
		joinedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT family_id, user_id, role, joined_at
FROM family_members WHERE family_id = ? AND user_id = ?`, familyID, userID).
		Scan(&member.FamilyID, &member.UserID, &member.Role, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Member{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Member{}, fmt.Errorf("scan member: %w", err)
	}
	member.JoinedAt = fromMillis(joinedAt)
	return member, nil
}

// ListMembers returns the members of a family.
func (s *Store) ListMembers(ctx context.Context, familyID string) ([]storage.Member, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT family_id, user_id, role, joined_at
FROM family_members WHERE family_id = ? ORDER BY joined_at`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []storage.Member
	for rows.Next() {
		var (
			member   storage.Member
			joinedAt int64
		)
		if err := rows.Scan(&member.FamilyID, &member.UserID, &member.Role, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		member.JoinedAt = fromMillis(joinedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// PutChild persists a child record.
func (s *Store) PutChild(ctx context.Context, child storage.Child) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO children (id, family_id, name, birth_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    birth_date = excluded.birth_date,
    updated_at = excluded.updated_at`,
		child.ID, child.FamilyID, child.Name, toMillis(child.BirthDate),
		toMillis(child.CreatedAt), toMillis(child.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert child: %w", err)
	}
	return nil
}

// GetChild loads a child record by id.
func (s *Store) GetChild(ctx context.Context, id string) (storage.Child, error) {
	var (
		child     storage.Child
		birthDate int64
		createdAt int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, family_id, name, birth_date, created_at, updated_at
FROM children WHERE id = ?`, id).
		Scan(&child.ID, &child.FamilyID, &child.Name, &birthDate, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Child{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Child{}, fmt.Errorf("scan child: %w", err)
	}
	child.BirthDate = fromMillis(birthDate)
	child.CreatedAt = fromMillis(createdAt)
	child.UpdatedAt = fromMillis(updatedAt)
	return child, nil
}

// ListChildren returns the children of a family ordered by birth date.
func (s *Store) ListChildren(ctx context.Context, familyID string) ([]storage.Child, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, family_id, name, birth_date, created_at, updated_at
FROM children WHERE family_id = ? ORDER BY birth_date`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []storage.Child
	for rows.Next() {
		var (
			child     storage.Child
			birthDate int64
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&child.ID, &child.FamilyID, &child.Name, &birthDate, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		child.BirthDate = fromMillis(birthDate)
		child.CreatedAt = fromMillis(createdAt)
		child.UpdatedAt = fromMillis(updatedAt)
		children = append(children, child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return children, nil
}

// PutInvite persists an invite record.
func (s *Store) PutInvite(ctx context.Context, invite storage.Invite) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO invites (id, family_id, email, role, created_by, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		invite.ID, invite.FamilyID, invite.Email, invite.Role, invite.CreatedBy,
		toMillis(invite.CreatedAt), toMillis(invite.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// GetInvite loads an invite by id.
func (s *Store) GetInvite(ctx context.Context, id string) (storage.Invite, error) {
	var (
		invite    storage.Invite
		createdAt int64
		expiresAt int64
		claimedBy sql.NullString
		claimedAt sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, family_id, email, role, created_by, created_at, expires_at, claimed_by, claimed_at
FROM invites WHERE id = ?`, id).
		Scan(&invite.ID, &invite.FamilyID, &invite.Email, &invite.Role, &invite.CreatedBy,
			&createdAt, &expiresAt, &claimedBy, &claimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Invite{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Invite{}, fmt.Errorf("scan invite: %w", err)
	}
	invite.CreatedAt = fromMillis(createdAt)
	invite.ExpiresAt = fromMillis(expiresAt)
	invite.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		invite.ClaimedAt = fromMillis(claimedAt.Int64)
	}
	return invite, nil
}

// ClaimInvite marks an invite claimed. The claimed_by IS NULL guard makes the
// claim single-use under concurrent redemptions.
func (s *Store) ClaimInvite(ctx context.Context, inviteID string, userID string, at time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites SET claimed_by = ?, claimed_at = ?
WHERE id = ? AND claimed_by IS NULL`, userID, toMillis(at), inviteID)
	if err != nil {
		return fmt.Errorf("claim invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim invite rows affected: %w", err)
	}
	if affected == 0 {
		var count int
		if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM invites WHERE id = ?`, inviteID).Scan(&count); err != nil {
			return fmt.Errorf("check invite: %w", err)
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrAlreadyExists
	}
	return nil
}
