package domain

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
	"github.com/keepsakehq/keepsake/internal/platform/id"
)

const minPasswordLength = 10

var (
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = apperrors.New(apperrors.CodeAccountEmailInvalid, "email address is invalid")
	// ErrPasswordTooShort indicates a password below the minimum length.
	ErrPasswordTooShort = apperrors.New(apperrors.CodeAccountPasswordTooShort, "password must be at least 10 characters")

	// emailPattern is deliberately loose: one @, non-empty local part, and a
	// dotted domain. Deliverability is the email provider's problem.
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// User represents an account identity record.
type User struct {
	ID        string
	Email     string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lowercases and trims an email address for storage and
// comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether the normalized address has a usable shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(NormalizeEmail(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// NewUser creates a durable user identity from validated input.
func NewUser(email string, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if err := ValidateEmail(email); err != nil {
		return User{}, err
	}
	userID, err := idGenerator()
	if err != nil {
		return User{}, err
	}
	created := now().UTC()
	return User{
		ID:        userID,
		Email:     NormalizeEmail(email),
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}
