package authz

import (
	"errors"
	"fmt"
)

// ErrUserNotInSession indicates an anonymous request: no user id is stored in
// the session. Callers typically redirect to login; this is never logged as
// an error.
var ErrUserNotInSession = errors.New("authz: no user in session")

// InvalidIdentifierError indicates the session held a user id that does not
// parse. Distinct from ErrUserNotInSession: the session is corrupted rather
// than absent, so it is worth a diagnostic log.
type InvalidIdentifierError struct {
	Raw string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("authz: session user id %q is not a valid identifier", e.Raw)
}

// UserNotInDatabaseError indicates the session identified a user that no
// longer exists in the store, e.g. a stale session for a deleted account.
type UserNotInDatabaseError struct {
	UserID uint64
}

func (e *UserNotInDatabaseError) Error() string {
	return fmt.Sprintf("authz: user %d not found in database", e.UserID)
}

// AccessDeniedError indicates an authenticated user lacks a required
// capability. Reason describes which permission failed; it is meant for logs
// and is never parsed by callers or sent to clients.
type AccessDeniedError struct {
	UserID uint64
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("authz: access denied for user %d: %s", e.UserID, e.Reason)
}
