// Package errors provides common domain error types for QuickNotes.
//
// It defines sentinel errors for store-level conditions like "not found",
// plus a structured PipelineError taxonomy for meeting-processing failures.
// Typed errors enable consistent handling with errors.Is()/errors.As().
package errors

import "errors"

// Domain errors - common sentinel errors for store and lifecycle conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyRunning indicates a pipeline run is already active for the
	// same meeting. At most one concurrent run per meeting id is allowed.
	ErrAlreadyRunning = errors.New("processing already running for meeting")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether any error in err's chain is ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsAlreadyRunning reports whether any error in err's chain is ErrAlreadyRunning.
func IsAlreadyRunning(err error) bool {
	return errors.Is(err, ErrAlreadyRunning)
}
