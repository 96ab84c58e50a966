// Package apperr defines the closed set of failure kinds surfaced by the
// stores and the service layer. Driver-specific errors are translated into
// one of these kinds at the store boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInternal      Kind = "internal"
	KindValidation    Kind = "validation_error"
	KindNotFound      Kind = "not_found"
	KindDuplicateKey  Kind = "duplicate_key"
	KindNoCapacity    Kind = "no_capacity"
	KindAlreadyJoined Kind = "already_joined"
	KindNotJoined     Kind = "not_joined"
	KindConflict      Kind = "conflict"
	KindPartialUpdate Kind = "partial_update"
	KindPersistence   Kind = "persistence_failure"
)

// Error carries a Kind, a caller-facing message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrDuplicateKey  = &Error{Kind: KindDuplicateKey}
	ErrNoCapacity    = &Error{Kind: KindNoCapacity}
	ErrAlreadyJoined = &Error{Kind: KindAlreadyJoined}
	ErrNotJoined     = &Error{Kind: KindNotJoined}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrPartialUpdate = &Error{Kind: KindPartialUpdate}
	ErrPersistence   = &Error{Kind: KindPersistence}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) error      { return &Error{Kind: KindNotFound, Msg: msg} }
func DuplicateKey(msg string) error  { return &Error{Kind: KindDuplicateKey, Msg: msg} }
func NoCapacity(msg string) error    { return &Error{Kind: KindNoCapacity, Msg: msg} }
func AlreadyJoined(msg string) error { return &Error{Kind: KindAlreadyJoined, Msg: msg} }
func NotJoined(msg string) error     { return &Error{Kind: KindNotJoined, Msg: msg} }
func Conflict(msg string) error      { return &Error{Kind: KindConflict, Msg: msg} }

// PartialUpdate reports that the first of a two-document write succeeded and
// the second did not. Callers may retry the operation to reconcile.
func PartialUpdate(msg string, err error) error {
	return &Error{Kind: KindPartialUpdate, Msg: msg, Err: err}
}

// Persistence wraps an unreachable store or a failed write.
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message of err. Causes of persistence
// and internal errors are not exposed.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Kind == KindPersistence || e.Kind == KindPartialUpdate || e.Kind == KindInternal {
		return string(e.Kind)
	}
	return e.Error()
}
