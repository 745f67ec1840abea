package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrPermissionDenied is returned when the owning connection lacks the
	// flag required for a write or delete.
	ErrPermissionDenied = errors.New("application: permission denied")
	// ErrLimitExceeded is returned when the per-user connection cap is reached.
	ErrLimitExceeded = errors.New("application: connection limit exceeded")
	// ErrDomainRejected is returned when an account's domain fails the
	// allow-list/block-list policy.
	ErrDomainRejected = errors.New("application: account domain rejected")
	// ErrInvalidWindow is returned when an event's start is not before its end.
	ErrInvalidWindow = errors.New("application: event start must be before end")
	// ErrInvalidDuration is returned when an event exceeds the maximum duration.
	ErrInvalidDuration = errors.New("application: event duration exceeds maximum")
	// ErrAlreadyExists is returned when a record with the same identifier exists.
	ErrAlreadyExists = errors.New("application: already exists")
)

// AdapterError wraps a provider adapter failure. It is always handled at the
// call site: best-effort pushes record it as a syncError notification, sync
// job execution converts it to a failed job.
type AdapterError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return fmt.Sprintf("provider adapter %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying adapter failure.
func (e *AdapterError) Unwrap() error {
	return e.Err
}
