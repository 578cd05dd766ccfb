package ledger

import "errors"

// Sentinel errors surfaced to the request boundary. Handlers map each one to
// a user-visible message and a redirect.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrParentNotFound     = errors.New("parent account not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
)
