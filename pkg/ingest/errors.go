package ingest

import (
	"errors"
	"fmt"
)

// Precondition and lifecycle errors. Precondition failures are raised
// before any network call is attempted.
var (
	// ErrMissingIdentifier is returned when no target identifier can be resolved.
	ErrMissingIdentifier = errors.New("missing target identifier")

	// ErrMissingCredential is returned when the store holds no source credential.
	ErrMissingCredential = errors.New("missing source credential")

	// ErrRunInFlight is returned when a run for the same identifier is
	// already in progress.
	ErrRunInFlight = errors.New("ingestion already in flight for identifier")

	// ErrIngestionFailed is the sentinel for a terminally failed run.
	ErrIngestionFailed = errors.New("ingestion failed")
)

// IngestionError reports a terminally failed run for a target.
type IngestionError struct {
	Target string
	Cause  error
}

// Error implements the error interface.
func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion for %q failed: %v", e.Target, e.Cause)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *IngestionError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrIngestionFailed sentinel.
func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestionFailed
}
