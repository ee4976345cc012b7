package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrFetchExhausted is returned when all fetch attempts are exhausted.
	ErrFetchExhausted = errors.New("fetch attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled between attempts.
	ErrContextCancelled = errors.New("context cancelled")
)

// ExhaustedError reports a fetch that failed on every attempt. The last
// attempt's failure reason is the one carried.
type ExhaustedError struct {
	URL        string
	Attempts   int
	LastReason string
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %s", e.URL, e.Attempts, e.LastReason)
}

// Unwrap makes the error match ErrFetchExhausted via errors.Is.
func (e *ExhaustedError) Unwrap() error {
	return ErrFetchExhausted
}
