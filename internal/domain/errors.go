package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed, oversized, or unsupported input.
// It never follows a state mutation and maps to a client-side failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a ValidationError with a formatted reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that a referenced id does not exist in a store.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StorageError reports a blob or catalog backend failure. Mid-ingestion
// it triggers compensation of already-completed steps before propagating.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports an id present in one store but missing from a
// companion store. Read paths drop the affected hit instead of failing;
// the error exists so the condition stays visible in logs.
type ConsistencyError struct {
	ID      string
	Missing string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("image %s has no entry in %s", e.ID, e.Missing)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
