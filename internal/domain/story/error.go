package story

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — the story is absent from both the remote source and the cache.
	ErrNotFound = errors.New("story not found")
	// ErrRemoteUnavailable — network error, timeout or non-2xx from the remote
	// source. Always recoverable via the cache fallback.
	ErrRemoteUnavailable = errors.New("remote source unavailable")
	// ErrStorageFailure — the local persistent store is unavailable. There is
	// no further fallback.
	ErrStorageFailure = errors.New("local storage failure")
	// ErrValidation — required input is missing or malformed. Checked before
	// any store or network call.
	ErrValidation = errors.New("invalid input")
)

// ValidationError reports which input field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps an underlying store failure so callers can match it
// with errors.Is(err, ErrStorageFailure).
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
