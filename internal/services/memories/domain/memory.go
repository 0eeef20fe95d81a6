package domain

import (
	"strings"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
)

// Kind identifies how a memory was captured.
type Kind string

const (
	// KindPhoto is an uploaded photo with an optional caption.
	KindPhoto Kind = "photo"
	// KindVoice is a recorded voice note.
	KindVoice Kind = "voice"
	// KindText is a written note.
	KindText Kind = "text"
)

var (
	// ErrKindInvalid indicates an unrecognized memory kind.
	ErrKindInvalid = apperrors.New(apperrors.CodeMemoryKindInvalid, "memory kind must be photo, voice, or text")
	// ErrBodyRequired indicates a text memory without body content.
	ErrBodyRequired = apperrors.New(apperrors.CodeMemoryBodyRequired, "text memories require body content")
	// ErrNotAuthor indicates an edit by someone other than the author.
	ErrNotAuthor = apperrors.New(apperrors.CodeMemoryNotAuthor, "only the author can change this memory")
)

// ParseKind validates a memory kind string.
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindPhoto, KindVoice, KindText:
		return Kind(value), true
	}
	return "", false
}

// Draft holds user-supplied memory fields before validation.
type Draft struct {
	FamilyID   string
	ChildID    string
	Kind       string
	Title      string
	Body       string
	MediaKey   string
	CapturedAt int64 // unix milliseconds; zero means capture time is now
}

// validateDraft normalizes and checks a draft's content rules. Photo and
// voice memories need a media key; text memories need a body.
func validateDraft(draft Draft) (Kind, Draft, error) {
	kind, ok := ParseKind(draft.Kind)
	if !ok {
		return "", Draft{}, ErrKindInvalid
	}
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Body = strings.TrimSpace(draft.Body)
	draft.MediaKey = strings.TrimSpace(draft.MediaKey)

	switch kind {
	case KindText:
		if draft.Body == "" {
			return "", Draft{}, ErrBodyRequired
		}
	case KindPhoto, KindVoice:
		if draft.MediaKey == "" {
			return "", Draft{}, apperrors.New(apperrors.CodeMemoryBodyRequired, "photo and voice memories require a media key")
		}
	}
	return kind, draft, nil
}
