package query

import (
	"errors"
	"fmt"
)

// QueryError reports a problem with query construction.
//
// Argument errors are recorded by the accessor that received the bad
// argument, before any builder state changes. State errors describe an
// invalid combination of accumulated settings and are only raised by Build.
type QueryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the builder method that detected the problem.
	Op string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes query construction errors.
type ErrorCode string

const (
	// ErrCodeNilArgument indicates a required argument was nil or zero.
	ErrCodeNilArgument ErrorCode = "NIL_ARGUMENT"

	// ErrCodeInvalidArgument indicates an argument was present but unusable.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeInvalidState indicates the accumulated builder state cannot
	// produce a well-defined query.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsArgumentError reports whether err (or any error it wraps) was caused by
// a bad argument passed to a builder accessor.
func IsArgumentError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeNilArgument || qe.Code == ErrCodeInvalidArgument
	}
	return false
}

// IsStateError reports whether err (or any error it wraps) was raised by
// Build because the accumulated state is inconsistent.
func IsStateError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeInvalidState
	}
	return false
}

func nilArgument(op, what string) *QueryError {
	return &QueryError{
		Code:    ErrCodeNilArgument,
		Op:      op,
		Message: what + " must not be nil",
	}
}

func invalidArgument(op, format string, args ...any) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidArgument,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

func invalidState(op, format string, args ...any) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidState,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
