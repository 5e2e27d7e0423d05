package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so callers can map it to a transport
// response without string matching.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation"
	KindForbidden        Kind = "forbidden"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindConflict         Kind = "conflict"
	KindAlreadyFinalized Kind = "already_finalized"
)

// Error is a typed domain failure. Every failure crossing a service
// boundary is one of these; repositories wrap infrastructure errors with
// fmt.Errorf and services classify them.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func CapacityExceededf(format string, args ...any) *Error {
	return newError(KindCapacityExceeded, format, args...)
}

func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func AlreadyFinalizedf(format string, args ...any) *Error {
	return newError(KindAlreadyFinalized, format, args...)
}

// WrapValidation attaches an underlying cause (e.g. a validator error) to a
// Validation failure.
func WrapValidation(err error, format string, args ...any) *Error {
	e := newError(KindValidation, format, args...)
	e.Err = err
	return e
}

func isKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

func IsNotFound(err error) bool         { return isKind(err, KindNotFound) }
func IsValidation(err error) bool       { return isKind(err, KindValidation) }
func IsForbidden(err error) bool        { return isKind(err, KindForbidden) }
func IsCapacityExceeded(err error) bool { return isKind(err, KindCapacityExceeded) }
func IsConflict(err error) bool         { return isKind(err, KindConflict) }
func IsAlreadyFinalized(err error) bool { return isKind(err, KindAlreadyFinalized) }
