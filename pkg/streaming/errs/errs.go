// Package errs provides the typed error kinds used across the streaming
// core: a plain Go error wrapped with an enum tag so callers can branch
// on Kind with errors.As instead of string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories an operator or manager call can fail with.
type Kind int

const (
	SchemaMismatch Kind = iota
	TypeError
	InputClosed
	DuplicateActor
	DuplicateFragment
	ChannelMissing
	StateStoreIO
	SerializationError
	NotImplemented
	Internal
)

func (k Kind) String() string {
	switch k {
	case SchemaMismatch:
		return "SchemaMismatch"
	case TypeError:
		return "TypeError"
	case InputClosed:
		return "InputClosed"
	case DuplicateActor:
		return "DuplicateActor"
	case DuplicateFragment:
		return "DuplicateFragment"
	case ChannelMissing:
		return "ChannelMissing"
	case StateStoreIO:
		return "StateStoreIO"
	case SerializationError:
		return "SerializationError"
	case NotImplemented:
		return "NotImplemented"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged error, useful for distinguishing fatal fragment
// errors from one another when the manager surfaces the first failure from
// wait_all.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error wrapping a formatted message.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error with a Kind.
func Wrap(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
