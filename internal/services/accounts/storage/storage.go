// Package storage defines persistence contracts for account state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested account record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// User stores one durable account identity.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Username     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile stores display fields for one user.
type Profile struct {
	UserID      string
	DisplayName string
	Bio         string
	Pronouns    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WebSession stores one durable authenticated browser session.
type WebSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserStore persists account identities and username claims.
type UserStore interface {
	PutUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// ClaimUsername atomically assigns a username to a user. It returns
	// ErrAlreadyExists when another user holds the name.
	ClaimUsername(ctx context.Context, userID string, username string) error
	// UsernameTaken is the authoritative availability check.
	UsernameTaken(ctx context.Context, username string) (bool, error)
	// ListUsernamesByPrefix returns claimed usernames sharing a prefix,
	// used as the local-collision snapshot for suggestion generation.
	ListUsernamesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
}

// ProfileStore persists user profile records.
type ProfileStore interface {
	PutProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// SessionStore persists web sessions.
type SessionStore interface {
	PutWebSession(ctx context.Context, session WebSession) error
	GetWebSession(ctx context.Context, id string) (WebSession, error)
	DeleteWebSession(ctx context.Context, id string) error
}
