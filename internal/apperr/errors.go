// Package apperr holds the error taxonomy shared by the discussion core and
// its remote adapters. Errors are classified with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated: the viewer has no identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrValidationFailed: rejected locally, no remote call was made.
	ErrValidationFailed = errors.New("validation failed")
	// ErrRemoteRejected: the remote answered with a non-success result.
	ErrRemoteRejected = errors.New("remote rejected")
	// ErrRemoteUnavailable: transport failure, the remote was not reached.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrNotFound: the target no longer exists.
	ErrNotFound = errors.New("not found")
)

// Rejected wraps a remote refusal. cause may be nil or one of the sentinels
// above (e.g. ErrNotFound) so both classifications survive.
func Rejected(op string, cause error, msg string) error {
	if cause != nil {
		return fmt.Errorf("%s: %w: %w: %s", op, ErrRemoteRejected, cause, msg)
	}
	return fmt.Errorf("%s: %w: %s", op, ErrRemoteRejected, msg)
}

func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
}

// IsRemoteFailure reports whether err is a failure the state machine rolls back on.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemoteRejected) || errors.Is(err, ErrRemoteUnavailable)
}

// Expected reports whether err belongs to the taxonomy. Anything else is an
// unexpected failure such as a malformed payload.
func Expected(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrNotFound) ||
		IsRemoteFailure(err)
}

// Message is the user-facing text for a classified error.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "please log in first"
	case errors.Is(err, ErrValidationFailed):
		return "content must not be empty"
	case errors.Is(err, ErrRemoteUnavailable):
		return "network problem, please try again"
	case errors.Is(err, ErrNotFound):
		return "this item no longer exists"
	case errors.Is(err, ErrRemoteRejected):
		return "the action was rejected"
	}
	return "something went wrong"
}
