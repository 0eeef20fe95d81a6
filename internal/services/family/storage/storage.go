// Package storage defines persistence contracts for family state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested family record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// Family stores one household.
type Family struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member stores one user's role inside a family.
type Member struct {
	FamilyID string
	UserID   string
	Role     string
	JoinedAt time.Time
}

// Child stores one child record inside a family.
type Child struct {
	ID        string
	FamilyID  string
	Name      string
	BirthDate time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Invite stores one issued invite and its claim state.
type Invite struct {
	ID        string
	FamilyID  string
	Email     string
	Role      string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt time.Time
	ClaimedBy string
	ClaimedAt time.Time
}

// FamilyStore persists families and memberships.
type FamilyStore interface {
	PutFamily(ctx context.Context, family Family) error
	GetFamily(ctx context.Context, id string) (Family, error)
	ListFamiliesByUser(ctx context.Context, userID string) ([]Family, error)
	PutMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, familyID string, userID string) (Member, error)
	ListMembers(ctx context.Context, familyID string) ([]Member, error)
}

// ChildStore persists child records.
type ChildStore interface {
	PutChild(ctx context.Context, child Child) error
	GetChild(ctx context.Context, id string) (Child, error)
	ListChildren(ctx context.Context, familyID string) ([]Child, error)
}

// InviteStore persists invites.
type InviteStore interface {
	PutInvite(ctx context.Context, invite Invite) error
	GetInvite(ctx context.Context, id string) (Invite, error)
	// ClaimInvite marks an invite claimed by a user. It returns
	// ErrAlreadyExists when the invite was already claimed.
	ClaimInvite(ctx context.Context, inviteID string, userID string, at time.Time) error
}
