package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Account errors
	CodeAccountEmailInvalid     Code = "ACCOUNT_EMAIL_INVALID"
	CodeAccountEmailTaken       Code = "ACCOUNT_EMAIL_TAKEN"
	CodeAccountPasswordTooShort Code = "ACCOUNT_PASSWORD_TOO_SHORT"
	CodeAccountCredentialsBad   Code = "ACCOUNT_CREDENTIALS_INVALID"
	CodeAccountProfileInvalid   Code = "ACCOUNT_PROFILE_INVALID"

	// Username errors
	CodeUsernameInvalidFormat Code = "USERNAME_INVALID_FORMAT"
	CodeUsernameReserved      Code = "USERNAME_RESERVED"
	CodeUsernameTaken         Code = "USERNAME_TAKEN"

	// Session errors
	CodeSessionInvalid Code = "SESSION_INVALID"
	CodeSessionExpired Code = "SESSION_EXPIRED"

	// Family errors
	CodeFamilyNameEmpty      Code = "FAMILY_NAME_EMPTY"
	CodeFamilyNotMember      Code = "FAMILY_NOT_MEMBER"
	CodeFamilyRoleDisallows  Code = "FAMILY_ROLE_DISALLOWS_OPERATION"
	CodeChildNameEmpty       Code = "CHILD_NAME_EMPTY"
	CodeChildBirthInFuture   Code = "CHILD_BIRTH_DATE_IN_FUTURE"
	CodeInviteGrantInvalid   Code = "INVITE_GRANT_INVALID"
	CodeInviteGrantExpired   Code = "INVITE_GRANT_EXPIRED"
	CodeInviteAlreadyClaimed Code = "INVITE_ALREADY_CLAIMED"

	// Memory errors
	CodeMemoryKindInvalid  Code = "MEMORY_KIND_INVALID"
	CodeMemoryBodyRequired Code = "MEMORY_BODY_REQUIRED"
	CodeMemoryNotAuthor    Code = "MEMORY_NOT_AUTHOR"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Request errors
	CodeRateLimited Code = "RATE_LIMITED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeAccountEmailInvalid,
		CodeAccountPasswordTooShort,
		CodeAccountProfileInvalid,
		CodeUsernameInvalidFormat,
		CodeUsernameReserved,
		CodeFamilyNameEmpty,
		CodeChildNameEmpty,
		CodeChildBirthInFuture,
		CodeMemoryKindInvalid,
		CodeMemoryBodyRequired:
		return http.StatusBadRequest

	// Unauthorized - missing or invalid identity
	case CodeAccountCredentialsBad,
		CodeSessionInvalid,
		CodeSessionExpired:
		return http.StatusUnauthorized

	// Forbidden - identity known, operation not allowed
	case CodeFamilyNotMember,
		CodeFamilyRoleDisallows,
		CodeMemoryNotAuthor:
		return http.StatusForbidden

	// Conflict - uniqueness or state conflicts
	case CodeAccountEmailTaken,
		CodeUsernameTaken,
		CodeAlreadyExists,
		CodeInviteAlreadyClaimed:
		return http.StatusConflict

	// Gone/expired grants still read as unprocessable requests
	case CodeInviteGrantInvalid,
		CodeInviteGrantExpired:
		return http.StatusUnprocessableEntity

	case CodeNotFound:
		return http.StatusNotFound

	case CodeRateLimited:
		return http.StatusTooManyRequests

	default:
		return http.StatusInternalServerError
	}
}
