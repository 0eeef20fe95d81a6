package domain

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
	"github.com/keepsakehq/keepsake/internal/platform/id"
	"github.com/keepsakehq/keepsake/internal/random"
	"github.com/keepsakehq/keepsake/internal/services/accounts/storage"
	"github.com/keepsakehq/keepsake/internal/username"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour

	// snapshotLimit bounds the existing-username snapshot fetched ahead of
	// suggestion generation. The authoritative per-candidate probe runs
	// afterwards, so the snapshot only needs to catch common collisions.
	snapshotLimit = 64
)

var (
	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = apperrors.New(apperrors.CodeAccountCredentialsBad, "email or password is incorrect")
	// ErrEmailTaken indicates signup with an already registered email.
	ErrEmailTaken = apperrors.New(apperrors.CodeAccountEmailTaken, "email address is already registered")
	// ErrUsernameTaken indicates a claim on an already assigned username.
	ErrUsernameTaken = apperrors.New(apperrors.CodeUsernameTaken, "username is already taken")
	// ErrUsernameInvalid indicates a claim with a malformed username.
	ErrUsernameInvalid = apperrors.New(apperrors.CodeUsernameInvalidFormat, "username must start with a letter and use 3-30 lowercase letters, digits, underscores, or hyphens")
	// ErrUsernameReserved indicates a claim on a reserved username.
	ErrUsernameReserved = apperrors.New(apperrors.CodeUsernameReserved, "username is reserved")
	// ErrSessionInvalid indicates an unknown session id.
	ErrSessionInvalid = apperrors.New(apperrors.CodeSessionInvalid, "session is invalid")
	// ErrSessionExpired indicates a session past its expiry.
	ErrSessionExpired = apperrors.New(apperrors.CodeSessionExpired, "session has expired")
)

// Store is the persistence surface the accounts service depends on.
type Store interface {
	storage.UserStore
	storage.ProfileStore
	storage.SessionStore
}

// Service coordinates account identity operations.
type Service struct {
	store       Store
	reserved    map[string]struct{}
	clock       func() time.Time
	idGenerator func() (string, error)
	newSeed     func() (int64, error)
	sessionTTL  time.Duration
}

// Config tunes service behavior; zero values select defaults.
type Config struct {
	Reserved    map[string]struct{}
	Clock       func() time.Time
	IDGenerator func() (string, error)
	NewSeed     func() (int64, error)
	SessionTTL  time.Duration
}

// NewService creates an accounts service backed by store.
func NewService(store Store, cfg Config) *Service {
	if cfg.Reserved == nil {
		cfg.Reserved = username.DefaultReserved()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	if cfg.NewSeed == nil {
		cfg.NewSeed = random.NewSeed
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return &Service{
		store:       store,
		reserved:    cfg.Reserved,
		clock:       cfg.Clock,
		idGenerator: cfg.IDGenerator,
		newSeed:     cfg.NewSeed,
		sessionTTL:  cfg.SessionTTL,
	}
}

// Signup registers a new account with a hashed password.
func (s *Service) Signup(ctx context.Context, email string, password string) (User, error) {
	if s == nil || s.store == nil {
		return User{}, fmt.Errorf("accounts service is not configured")
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}
	user, err := NewUser(email, s.clock, s.idGenerator)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	record := storage.User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: string(hash),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if err := s.store.PutUser(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("put user: %w", err)
	}
	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (User, error) {
	if s == nil || s.store == nil {
		return User{}, fmt.Errorf("accounts service is not configured")
	}
	record, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return userFromRecord(record), nil
}

// GetUser resolves a user by id.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	record, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return User{}, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return userFromRecord(record), nil
}

// CreateSession mints a durable web session for a user.
func (s *Service) CreateSession(ctx context.Context, userID string) (storage.WebSession, error) {
	sessionID, err := s.idGenerator()
	if err != nil {
		return storage.WebSession{}, fmt.Errorf("generate session id: %w", err)
	}
	now := s.clock().UTC()
	session := storage.WebSession{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.PutWebSession(ctx, session); err != nil {
		return storage.WebSession{}, fmt.Errorf("put web session: %w", err)
	}
	return session, nil
}

// ResolveSession validates a session id and returns the owning user.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (User, error) {
	session, err := s.store.GetWebSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return User{}, ErrSessionInvalid
		}
		return User{}, fmt.Errorf("get web session: %w", err)
	}
	if !s.clock().UTC().Before(session.ExpiresAt) {
		return User{}, ErrSessionExpired
	}
	return s.GetUser(ctx, session.UserID)
}

// EndSession deletes a session. Unknown sessions end without error.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	err := s.store.DeleteWebSession(ctx, sessionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete web session: %w", err)
	}
	return nil
}

// UpdateProfile validates and stores profile fields for a user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, displayName, bio, pronouns string) (storage.Profile, error) {
	normalized, err := NormalizeProfile(displayName, bio, pronouns)
	if err != nil {
		return storage.Profile{}, err
	}
	now := s.clock().UTC()
	profile := storage.Profile{
		UserID:      userID,
		DisplayName: normalized.DisplayName,
		Bio:         normalized.Bio,
		Pronouns:    normalized.Pronouns,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutProfile(ctx, profile); err != nil {
		return storage.Profile{}, fmt.Errorf("put profile: %w", err)
	}
	return profile, nil
}

// GetProfile resolves the profile for a user.
func (s *Service) GetProfile(ctx context.Context, userID string) (storage.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Profile{}, apperrors.New(apperrors.CodeNotFound, "profile not found")
		}
		return storage.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// ClaimUsername assigns a username to a user after format, reservation, and
// authoritative uniqueness checks.
func (s *Service) ClaimUsername(ctx context.Context, userID string, name string) error {
	name = username.Normalize(name)
	if !username.Valid(name) {
		return ErrUsernameInvalid
	}
	if _, bad := s.reserved[name]; bad {
		return ErrUsernameReserved
	}
	if err := s.store.ClaimUsername(ctx, userID, name); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("claim username: %w", err)
	}
	return nil
}

// SuggestUsernames generates candidates from a display name and verifies
// each against the authoritative store before returning it.
//
// The generator works from a snapshot of existing usernames, so the
// per-candidate probe is what actually guarantees the returned names were
// free at check time. A concurrent signup can still win the race; callers
// must treat ClaimUsername as the final arbiter.
func (s *Service) SuggestUsernames(ctx context.Context, rawName string, rng *rand.Rand) ([]string, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("accounts service is not configured")
	}
	var existing []string
	if base := username.Normalize(rawName); base != "" {
		prefix := base
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
		snapshot, err := s.store.ListUsernamesByPrefix(ctx, prefix, snapshotLimit)
		if err != nil {
			return nil, fmt.Errorf("snapshot existing usernames: %w", err)
		}
		existing = snapshot
	}

	if rng == nil {
		seed, err := s.newSeed()
		if err != nil {
			return nil, fmt.Errorf("seed suggestion rng: %w", err)
		}
		rng = rand.New(rand.NewSource(seed))
	}

	candidates := username.Generate(rawName, existing, s.reserved, rng)

	available := candidates[:0]
	for _, candidate := range candidates {
		taken, err := s.store.UsernameTaken(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("probe username %q: %w", candidate, err)
		}
		if !taken {
			available = append(available, candidate)
		}
	}
	return available, nil
}

func userFromRecord(record storage.User) User {
	return User{
		ID:        record.ID,
		Email:     record.Email,
		Username:  record.Username,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
