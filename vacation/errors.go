/*
errors.go - Error types for the vacation core

ERROR CATEGORIES:
 1. Validation errors - candidate dropped, equivalent to "no vacation"
 2. Store errors - fatal to the current unit of work, never retried

DuplicateSkipped is a reconciliation outcome, not an error.
Oracle failures never reach this package; the oracle adapter degrades them
to "no vacation" on its own.
*/
package vacation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreUnavailable is returned when the store is not configured or a
	// store operation fails.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidDateFormat is returned when a date is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrIncompleteCandidate is returned when name or a date is missing.
	ErrIncompleteCandidate = errors.New("incomplete candidate")

	// ErrReversedRange is returned when the start date is after the end date.
	ErrReversedRange = errors.New("start date after end date")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("vacation not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failing store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err means the candidate must be dropped.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrIncompleteCandidate) ||
		errors.Is(err, ErrReversedRange)
}

// ErrorKind maps an error to a stable logging label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDateFormat):
		return "invalid_date_format"
	case errors.Is(err, ErrIncompleteCandidate):
		return "incomplete_candidate"
	case errors.Is(err, ErrReversedRange):
		return "reversed_range"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "unexpected"
	}
}
