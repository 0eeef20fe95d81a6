package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
	"github.com/keepsakehq/keepsake/internal/platform/id"
	"github.com/keepsakehq/keepsake/internal/services/family/storage"
)

const defaultInviteTTL = 7 * 24 * time.Hour

var (
	// ErrFamilyNameEmpty indicates a family with no usable name.
	ErrFamilyNameEmpty = apperrors.New(apperrors.CodeFamilyNameEmpty, "family name is required")
	// ErrNotMember indicates the acting user does not belong to the family.
	ErrNotMember = apperrors.New(apperrors.CodeFamilyNotMember, "user is not a member of this family")
	// ErrRoleDisallows indicates the member's role forbids the operation.
	ErrRoleDisallows = apperrors.New(apperrors.CodeFamilyRoleDisallows, "role does not allow this operation")
	// ErrChildNameEmpty indicates a child record with no usable name.
	ErrChildNameEmpty = apperrors.New(apperrors.CodeChildNameEmpty, "child name is required")
	// ErrBirthInFuture indicates a child birth date after now.
	ErrBirthInFuture = apperrors.New(apperrors.CodeChildBirthInFuture, "birth date must not be in the future")
	// ErrInviteClaimed indicates a grant whose invite was already redeemed.
	ErrInviteClaimed = apperrors.New(apperrors.CodeInviteAlreadyClaimed, "invite was already claimed")
)

// Store is the persistence surface the family service depends on.
type Store interface {
	storage.FamilyStore
	storage.ChildStore
	storage.InviteStore
}

// Service coordinates family, child, and invite operations.
type Service struct {
	store       Store
	grants      GrantConfig
	clock       func() time.Time
	idGenerator func() (string, error)
	inviteTTL   time.Duration
}

// Config tunes service behavior; zero values select defaults.
type Config struct {
	Grants      GrantConfig
	Clock       func() time.Time
	IDGenerator func() (string, error)
	InviteTTL   time.Duration
}

// NewService creates a family service backed by store.
func NewService(store Store, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = defaultInviteTTL
	}
	return &Service{
		store:       store,
		grants:      cfg.Grants,
		clock:       cfg.Clock,
		idGenerator: cfg.IDGenerator,
		inviteTTL:   cfg.InviteTTL,
	}
}

// CreateFamily creates a family and enrolls the creator as owner.
func (s *Service) CreateFamily(ctx context.Context, ownerUserID string, name string) (storage.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Family{}, ErrFamilyNameEmpty
	}
	familyID, err := s.idGenerator()
	if err != nil {
		return storage.Family{}, fmt.Errorf("generate family id: %w", err)
	}
	now := s.clock().UTC()
	family := storage.Family{
		ID:        familyID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutFamily(ctx, family); err != nil {
		return storage.Family{}, fmt.Errorf("put family: %w", err)
	}
	member := storage.Member{
		FamilyID: familyID,
		UserID:   ownerUserID,
		Role:     string(RoleOwner),
		JoinedAt: now,
	}
	if err := s.store.PutMember(ctx, member); err != nil {
		return storage.Family{}, fmt.Errorf("put owner member: %w", err)
	}
	return family, nil
}

// GetFamily resolves a family the user belongs to.
func (s *Service) GetFamily(ctx context.Context, userID string, familyID string) (storage.Family, error) {
	if _, err := s.requireMember(ctx, familyID, userID); err != nil {
		return storage.Family{}, err
	}
	family, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Family{}, apperrors.New(apperrors.CodeNotFound, "family not found")
		}
		return storage.Family{}, fmt.Errorf("get family: %w", err)
	}
	return family, nil
}

// ListFamilies returns the families the user belongs to.
func (s *Service) ListFamilies(ctx context.Context, userID string) ([]storage.Family, error) {
	families, err := s.store.ListFamiliesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return families, nil
}

// ListMembers returns the members of a family the user belongs to.
func (s *Service) ListMembers(ctx context.Context, userID string, familyID string) ([]storage.Member, error) {
	if _, err := s.requireMember(ctx, familyID, userID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Membership resolves the caller's role in a family, or ErrNotMember.
func (s *Service) Membership(ctx context.Context, userID string, familyID string) (Role, error) {
	return s.requireMember(ctx, familyID, userID)
}

// AddChild creates a child record inside a family.
func (s *Service) AddChild(ctx context.Context, userID string, familyID string, name string, birthDate time.Time) (storage.Child, error) {
	role, err := s.requireMember(ctx, familyID, userID)
	if err != nil {
		return storage.Child{}, err
	}
	if !role.CanManageChildren() {
		return storage.Child{}, ErrRoleDisallows
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Child{}, ErrChildNameEmpty
	}
	now := s.clock().UTC()
	if birthDate.After(now) {
		return storage.Child{}, ErrBirthInFuture
	}
	childID, err := s.idGenerator()
	if err != nil {
		return storage.Child{}, fmt.Errorf("generate child id: %w", err)
	}
	child := storage.Child{
		ID:        childID,
		FamilyID:  familyID,
		Name:      name,
		BirthDate: birthDate.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutChild(ctx, child); err != nil {
		return storage.Child{}, fmt.Errorf("put child: %w", err)
	}
	return child, nil
}

// GetChild resolves a child record for a member of its family.
func (s *Service) GetChild(ctx context.Context, userID string, childID string) (storage.Child, error) {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Child{}, apperrors.New(apperrors.CodeNotFound, "child not found")
		}
		return storage.Child{}, fmt.Errorf("get child: %w", err)
	}
	if _, err := s.requireMember(ctx, child.FamilyID, userID); err != nil {
		return storage.Child{}, err
	}
	return child, nil
}

// ListChildren returns the children of a family the user belongs to.
func (s *Service) ListChildren(ctx context.Context, userID string, familyID string) ([]storage.Child, error) {
	if _, err := s.requireMember(ctx, familyID, userID); err != nil {
		return nil, err
	}
	children, err := s.store.ListChildren(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// IssuedInvite couples a stored invite with its signed grant token.
type IssuedInvite struct {
	Invite storage.Invite
	Grant  string
}

// CreateInvite issues a signed invite grant for an email address.
func (s *Service) CreateInvite(ctx context.Context, userID string, familyID string, email string, targetRole Role) (IssuedInvite, error) {
	role, err := s.requireMember(ctx, familyID, userID)
	if err != nil {
		return IssuedInvite{}, err
	}
	if _, ok := ParseRole(string(targetRole)); !ok || targetRole == RoleOwner {
		return IssuedInvite{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite role must be guardian or viewer")
	}
	if !role.CanInvite(targetRole) {
		return IssuedInvite{}, ErrRoleDisallows
	}
	email = strings.ToLower(strings.TrimSpace(email))
	inviteID, err := s.idGenerator()
	if err != nil {
		return IssuedInvite{}, fmt.Errorf("generate invite id: %w", err)
	}
	now := s.clock().UTC()
	invite := storage.Invite{
		ID:        inviteID,
		FamilyID:  familyID,
		Email:     email,
		Role:      string(targetRole),
		CreatedBy: userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.inviteTTL),
	}
	grant, err := SignGrant(inviteID, familyID, email, invite.ExpiresAt, s.grants)
	if err != nil {
		return IssuedInvite{}, err
	}
	if err := s.store.PutInvite(ctx, invite); err != nil {
		return IssuedInvite{}, fmt.Errorf("put invite: %w", err)
	}
	return IssuedInvite{Invite: invite, Grant: grant}, nil
}

// RedeemInvite validates a grant token and enrolls the user in the family.
//
// The store's single-use claim is the arbiter for concurrent redemptions of
// the same grant.
func (s *Service) RedeemInvite(ctx context.Context, userID string, grant string) (storage.Member, error) {
	claims, err := ValidateGrant(grant, s.grants)
	if err != nil {
		return storage.Member{}, err
	}
	invite, err := s.store.GetInvite(ctx, claims.InviteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Member{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite not found")
		}
		return storage.Member{}, fmt.Errorf("get invite: %w", err)
	}
	if invite.FamilyID != claims.FamilyID {
		return storage.Member{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant family mismatch")
	}
	now := s.clock().UTC()
	if !invite.ExpiresAt.After(now) {
		return storage.Member{}, apperrors.New(apperrors.CodeInviteGrantExpired, "invite is expired")
	}
	if invite.ClaimedBy != "" {
		return storage.Member{}, ErrInviteClaimed
	}
	if err := s.store.ClaimInvite(ctx, invite.ID, userID, now); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.Member{}, ErrInviteClaimed
		}
		return storage.Member{}, fmt.Errorf("claim invite: %w", err)
	}
	member := storage.Member{
		FamilyID: invite.FamilyID,
		UserID:   userID,
		Role:     invite.Role,
		JoinedAt: now,
	}
	if err := s.store.PutMember(ctx, member); err != nil {
		return storage.Member{}, fmt.Errorf("put member: %w", err)
	}
	return member, nil
}

func (s *Service) requireMember(ctx context.Context, familyID string, userID string) (Role, error) {
	member, err := s.store.GetMember(ctx, familyID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("get member: %w", err)
	}
	role, ok := ParseRole(member.Role)
	if !ok {
		return "", fmt.Errorf("stored role %q is invalid", member.Role)
	}
	return role, nil
}
