package graph

import (
	"errors"
	"fmt"
)

// The store surfaces exactly one of three error kinds on failure. The reason
// string is human-readable and is passed through verbatim by the transport
// layer when picking a status code.

// NotFoundError indicates a referenced entity, state, or edge is absent.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

// ConflictError indicates a uniqueness violation, or that a dependency
// blocks a destructive operation. The reason enumerates the blocking items.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// ValidationError indicates malformed or reserved identifiers, a
// self-reference, a disallowed kind, or a cycle violation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func notFoundf(format string, args ...any) error {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// isDomainError reports whether err belongs to the store's error taxonomy,
// as opposed to an infrastructure failure from the backing database.
func isDomainError(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsValidation(err)
}
