package domain

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
)

const (
	maxDisplayNameLength = 64
	maxBioLength         = 280
)

// NormalizedProfile stores validated profile field values.
type NormalizedProfile struct {
	DisplayName string
	Bio         string
	Pronouns    string
}

// NormalizeProfile validates and trims user-supplied profile values.
func NormalizeProfile(displayName string, bio string, pronouns string) (NormalizedProfile, error) {
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return NormalizedProfile{}, apperrors.New(apperrors.CodeAccountProfileInvalid, "display name must be at most 64 characters")
	}

	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > maxBioLength {
		return NormalizedProfile{}, apperrors.New(apperrors.CodeAccountProfileInvalid, "bio must be at most 280 characters")
	}

	pronouns = strings.TrimSpace(pronouns)

	return NormalizedProfile{
		DisplayName: displayName,
		Bio:         bio,
		Pronouns:    pronouns,
	}, nil
}
