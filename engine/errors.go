/*
errors.go - Centralized error types for the rent engine

PURPOSE:
  All engine error types in one place. Callers branch with errors.Is /
  errors.As; domain packages wrap these with additional context.

ERROR CATEGORIES (three, and only three):
  1. Invalid input  - malformed or out-of-order dates. Rejected
     synchronously before any cycle math runs.
  2. Exhausted iteration - the cycle enumeration cap was hit. This is a
     data anomaly (check-in far in the future, corrupted anchor) and is
     a hard failure, never a truncated result presented as complete.
  3. Missing price information is NOT an error: it is the deliberate
     legacy-fallback mode, flagged via DueSource in the output.

Nothing in this package is retried. The engine is pure computation;
retry policy belongs to whichever collaborator persists the results.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidStay is returned for malformed stay bounds, e.g. a
	// check-out date before check-in.
	ErrInvalidStay = errors.New("invalid stay bounds")

	// ErrInvalidAllocation is returned for an allocation history that
	// violates its invariants (overlap, ordering, duplicate open interval).
	ErrInvalidAllocation = errors.New("invalid allocation history")

	// ErrCycleOverflow is returned when cycle enumeration exceeds the
	// iteration cap. Indicates corrupted input data.
	ErrCycleOverflow = errors.New("cycle enumeration exceeded iteration cap")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StayValidationError describes why stay bounds were rejected.
type StayValidationError struct {
	Reason   string
	CheckIn  Date
	CheckOut *Date
}

func (e *StayValidationError) Error() string {
	return "invalid stay: " + e.Reason
}

func (e *StayValidationError) Unwrap() error { return ErrInvalidStay }

// AllocationValidationError describes which interval broke the history
// invariants and how.
type AllocationValidationError struct {
	Index  int
	Reason string
}

func (e *AllocationValidationError) Error() string {
	return fmt.Sprintf("invalid allocation history at interval %d: %s", e.Index, e.Reason)
}

func (e *AllocationValidationError) Unwrap() error { return ErrInvalidAllocation }

// CycleOverflowError carries the inputs that blew past the iteration cap,
// so the anomaly can be logged with enough context to find the bad row.
type CycleOverflowError struct {
	CheckIn Date
	Cutoff  Date
	Cap     int
}

func (e *CycleOverflowError) Error() string {
	return fmt.Sprintf("cycle enumeration from %s to %s exceeded %d iterations",
		e.CheckIn, e.Cutoff, e.Cap)
}

func (e *CycleOverflowError) Unwrap() error { return ErrCycleOverflow }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStay) || errors.Is(err, ErrInvalidAllocation)
}

// IsDataAnomaly returns true if the error indicates corrupted stored data
// rather than a bad request.
func IsDataAnomaly(err error) bool {
	return errors.Is(err, ErrCycleOverflow)
}
