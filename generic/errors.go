/*
errors.go - Centralized error types for the engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Domain packages wrap these with context and structured detail.

ERROR CATEGORIES:
  1. Resolution errors - staged rows that do not match the master catalog
  2. Lifecycle errors  - nothing staged, row vanished, bad report window
  3. Commit failures   - storage faults during the all-or-nothing commit

  Data-shape problems (bad dates, bad numbers) are NOT errors: they are
  coerced to absent values so one bad cell never blocks a batch.

USAGE:
  if errors.Is(err, generic.ErrValidationFailed) {
      var vf *productivity.ValidationFailedError
      errors.As(err, &vf) // vf.Errors lists every offending row
  }

SEE ALSO:
  - productivity/validate.go: ValidationFailedError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStagingEmpty is returned when confirming with nothing staged.
	ErrStagingEmpty = errors.New("no staged rows to commit")

	// ErrValidationFailed is returned when a staged batch has resolution errors.
	ErrValidationFailed = errors.New("staged batch failed validation")

	// ErrNotFound is returned when a referenced row or entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCommitFailed wraps storage faults during batch commit. Staging is
	// left untouched, so the commit can be retried.
	ErrCommitFailed = errors.New("commit failed")

	// ErrInvalidRange is returned for malformed report windows.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidConfig is returned for malformed report configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrStagingEmpty) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidConfig)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if repeating the operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCommitFailed)
}
