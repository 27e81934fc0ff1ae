package session

import (
	"errors"
	"fmt"
)

// Failure classes surfaced by the request pipeline. Callers branch on these
// with errors.Is: an unauthenticated failure ends the session and routes to a
// login prompt, everything else leaves the session untouched.
var (
	ErrUnauthenticated = errors.New("unauthenticated, please log in again")
	ErrForbidden       = errors.New("forbidden")
	ErrRateLimited     = errors.New("rate limited")
	ErrTransient       = errors.New("network error")
	ErrValidation      = errors.New("invalid request")
)

// ErrNoCredential is returned by a CredentialStore when nothing is persisted.
var ErrNoCredential = errors.New("no credential stored")

// Error is a typed API failure carrying the server-supplied message.
type Error struct {
	kind    error
	Status  int
	Message string
}

func newError(kind error, status int, message string) *Error {
	if message == "" {
		message = kind.Error()
	}
	return &Error{kind: kind, Status: status, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.kind.Error(), e.Status, e.Message)
}

// Unwrap lets errors.Is match the failure class sentinels.
func (e *Error) Unwrap() error {
	return e.kind
}
