package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during query execution.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates more records were scanned than allowed.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeProjection indicates the mask could not be applied to a record.
	ErrCodeProjection RuntimeErrorCode = "PROJECTION_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return false
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(scanned, maxScan int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("query exceeded max scanned records (%d > %d)", scanned, maxScan),
		Details: map[string]string{
			"scanned":  fmt.Sprintf("%d", scanned),
			"max_scan": fmt.Sprintf("%d", maxScan),
		},
	}
}

func newProjectionError(path string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeProjection,
		Message: fmt.Sprintf("mask path %q: %v", path, err),
		Details: map[string]string{"path": path},
	}
}
