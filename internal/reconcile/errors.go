package reconcile

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is.
var (
	// ErrNoTarget indicates that no document could be selected
	ErrNoTarget = errors.New("no document to reconcile")

	// ErrMissingBaseline indicates that generate has not been run yet
	ErrMissingBaseline = errors.New("missing baseline; run generate first")

	// ErrParser indicates that the parser failed or timed out
	ErrParser = errors.New("parser failed")

	// ErrRewrite indicates that the rewriter failed or produced no document
	ErrRewrite = errors.New("rewrite failed")

	// ErrIO indicates a file read, write or copy failure
	ErrIO = errors.New("i/o error")

	// ErrUserCancelled indicates that the operator abandoned the run
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrRunInProgress indicates that another run holds the state directory
	ErrRunInProgress = errors.New("another reconciliation run is in progress")
)

// Error is a failed run: the kind, the state it failed in, a human-readable
// message and the underlying cause.
type Error struct {
	Kind    error
	State   State
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is implements errors.Is support
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, state State, msg string, cause error) *Error {
	return &Error{Kind: kind, State: state, Message: msg, Err: cause}
}
