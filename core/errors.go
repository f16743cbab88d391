package core

import "errors"

// Sentinel errors shared by the storage, service and API layers.
// Wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness rule
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned when input fails validation
	ErrValidation = errors.New("validation failed")
	// ErrStorageUnavailable is returned when the database cannot be reached or is not configured
	ErrStorageUnavailable = errors.New("storage unavailable")
)
