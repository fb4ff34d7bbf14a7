package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrOAuthStateMismatch occurs when the OAuth callback state does not
	// match the token stored in the session.
	ErrOAuthStateMismatch = errors.New("oauth state mismatch")
	// ErrInvalidAdminCode occurs when an admin bootstrap code fails
	// verification.
	ErrInvalidAdminCode = errors.New("invalid or expired admin code")
)
