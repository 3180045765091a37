package model

import (
	"errors"
	"fmt"
)

// Error kinds partition engine failures by how callers should react:
// validation errors are recoverable bad input, not-found maps to a 404,
// conflicts signal state-machine violations, external-service errors are
// recorded on the run but never crash the engine, and integrity errors demand
// a transaction rollback.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindExternalService
	KindIntegrity
)

// Error is the engine's domain error. It carries a kind for dispatch and an
// optional wrapped cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports bad input shape or value.
func NewValidationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a missing company, run, or correction.
func NewNotFoundError(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// NewConflictError reports an illegal state transition, such as approving a
// non-pending correction.
func NewConflictError(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// NewExternalServiceError wraps a DNS or API failure after retries exhausted.
func NewExternalServiceError(msg string, err error) error {
	return &Error{Kind: KindExternalService, Msg: msg, Err: err}
}

// NewIntegrityError wraps a partial write that must trigger rollback.
func NewIntegrityError(msg string, err error) error {
	return &Error{Kind: KindIntegrity, Msg: msg, Err: err}
}

func isKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return isKind(err, KindConflict) }

// IsExternalService reports whether err is an external-service error.
func IsExternalService(err error) bool { return isKind(err, KindExternalService) }

// IsIntegrity reports whether err is an integrity error.
func IsIntegrity(err error) bool { return isKind(err, KindIntegrity) }
