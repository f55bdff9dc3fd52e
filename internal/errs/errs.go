// Package errs defines the error taxonomy shared by the engine, the
// session coordinator and the transport surface. Policy failures are
// returned as *Error values tagged with a Kind; callers branch on
// KindOf and the HTTP layer maps kinds to status codes.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the transport mapping.
type Kind int

const (
	// Internal is the zero value: unexpected failures and invariant
	// violations. Untagged errors report as Internal.
	Internal Kind = iota
	// NotFound means the game code or player id is unknown.
	NotFound
	// Unauthorized means a PIN mismatch or a creator-only operation
	// attempted by another player.
	Unauthorized
	// InvalidState means the engine rejected the operation in the
	// current state (out of turn, pause mid-hand, rebuy past cutoff).
	InvalidState
	// InvalidArgument means a malformed amount or an unknown action tag.
	InvalidArgument
	// Conflict means a concurrent update collided (duplicate name, seat
	// already taken).
	Conflict
	// Transient means a store timeout; retried once before surfacing.
	Transient
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case InvalidState:
		return "invalid_state"
	case InvalidArgument:
		return "invalid_argument"
	case Conflict:
		return "conflict"
	case Transient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is a tagged error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a tagged error with the given kind and message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns a tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and context message.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of err, or Internal when err carries no tag.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is tagged with kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return err != nil && kind == Internal
}
