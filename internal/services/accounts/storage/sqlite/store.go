// Package sqlite implements account persistence over SQLite.
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
	"github.com/keepsakehq/keepsake/internal/services/accounts/storage"
	"github.com/keepsakehq/keepsake/internal/services/accounts/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements account persistence over SQLite.
//
// A single SQLite file backs identity state so signup, sessions, and username
// claims share the same transaction and visibility boundaries.
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

// Open opens an accounts SQLite store and applies bundled migrations.
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
	if err := store.runMigrations(); err != nil {
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

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

// isUniqueViolation detects SQLite unique-constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// PutUser persists a new user record.
func (s *Store) PutUser(ctx context.Context, user storage.User) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, username, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, nullableName(user.Username),
		toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	if isUniqueViolation(err) {
		return storage.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (storage.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, password_hash, username, created_at, updated_at
FROM users WHERE id = ?`, id))
}

// GetUserByEmail loads a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, password_hash, username, created_at, updated_at
FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (storage.User, error) {
	var (
		user      storage.User
		name      sql.NullString
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.Username = name.String
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// ClaimUsername atomically assigns a username to a user. The UNIQUE index on
// users.username arbitrates races between concurrent claims.
func (s *Store) ClaimUsername(ctx context.Context, userID string, username string) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, toMillis(time.Now()), userID)
	if isUniqueViolation(err) {
		return storage.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("claim username: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim username rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UsernameTaken reports whether any user holds the given username.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count username: %w", err)
	}
	return count > 0, nil
}

// ListUsernamesByPrefix returns claimed usernames sharing a prefix.
func (s *Store) ListUsernamesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	// Range scan instead of LIKE: usernames may contain '_', which LIKE
	// treats as a wildcard.
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT username FROM users
WHERE username IS NOT NULL AND username >= ? AND username < ?
ORDER BY username LIMIT ?`, prefix, prefix+"￿", limit)
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usernames: %w", err)
	}
	return names, nil
}

// PutProfile upserts the profile row for a user.
func (s *Store) PutProfile(ctx context.Context, profile storage.Profile) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO profiles (user_id, display_name, bio, pronouns, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    display_name = excluded.display_name,
    bio = excluded.bio,
    pronouns = excluded.pronouns,
    updated_at = excluded.updated_at`,
		profile.UserID, profile.DisplayName, profile.Bio, profile.Pronouns,
		toMillis(profile.CreatedAt), toMillis(profile.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads the profile row for a user.
func (s *Store) GetProfile(ctx context.Context, userID string) (storage.Profile, error) {
	var (
		profile   storage.Profile
		createdAt int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, display_name, bio, pronouns, created_at, updated_at
FROM profiles WHERE user_id = ?`, userID).
		Scan(&profile.UserID, &profile.DisplayName, &profile.Bio, &profile.Pronouns, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Profile{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	profile.CreatedAt = fromMillis(createdAt)
	profile.UpdatedAt = fromMillis(updatedAt)
	return profile, nil
}

// PutWebSession persists a web session.
func (s *Store) PutWebSession(ctx context.Context, session storage.WebSession) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO web_sessions (id, user_id, created_at, expires_at)
VALUES (?, ?, ?, ?)`,
		session.ID, session.UserID, toMillis(session.CreatedAt), toMillis(session.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert web session: %w", err)
	}
	return nil
}

// GetWebSession loads a web session by id.
func (s *Store) GetWebSession(ctx context.Context, id string) (storage.WebSession, error) {
	var (
		session   storage.WebSession
		createdAt int64
		expiresAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, created_at, expires_at
FROM web_sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.WebSession{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.WebSession{}, fmt.Errorf("scan web session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return session, nil
}

// DeleteWebSession removes a web session by id.
func (s *Store) DeleteWebSession(ctx context.Context, id string) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete web session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete web session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullableName(name string) any {
	if name == "" {
		return nil
	}
	return name
}
