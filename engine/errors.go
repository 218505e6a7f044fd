/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Service and API layers wrap these with additional context.

ERROR CATEGORIES:
  1. Lookup errors     - missing users, policies, leaves, ledger rows
  2. Validation errors - bad date ranges, non-positive quantities
  3. Balance errors    - adjustments that would break ledger invariants
  4. Query errors      - oversized windows, unknown granularities

All failures here are local and synchronous business-rule failures;
none of them warrants a retry.

USAGE:
  if errors.Is(err, engine.ErrInsufficientBalance) { ... }

  var short *engine.InsufficientBalanceError
  if errors.As(err, &short) { short.Shortfall ... }
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced user, policy, leave record,
	// or ledger row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed input: bad date ranges,
	// non-positive explicit day counts, unknown day parts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientBalance is returned when an adjustment would drive a
	// row's remaining days negative. Overdraft is rejected.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAdjustment is returned when an adjustment would drive a
	// row's used days negative.
	ErrInvalidAdjustment = errors.New("invalid adjustment")

	// ErrRangeTooLarge is returned when a query window exceeds the
	// configured cap.
	ErrRangeTooLarge = errors.New("date range too large")

	// ErrUnsupportedGranularity is returned for a groupBy outside
	// month/year/week.
	ErrUnsupportedGranularity = errors.New("unsupported granularity")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports the shortfall of a rejected adjustment.
type InsufficientBalanceError struct {
	Key       BalanceKey
	Allocated decimal.Decimal
	Requested decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: allocated %s, would use %s (short %s)",
		e.Key, e.Allocated, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidAdjustmentError reports an adjustment that would make used negative.
type InvalidAdjustmentError struct {
	Key     BalanceKey
	Used    decimal.Decimal
	Delta   decimal.Decimal
	NewUsed decimal.Decimal
}

func (e *InvalidAdjustmentError) Error() string {
	return fmt.Sprintf("invalid adjustment for %s: used %s with delta %s would be %s",
		e.Key, e.Used, e.Delta, e.NewUsed)
}

func (e *InvalidAdjustmentError) Unwrap() error { return ErrInvalidAdjustment }

// UnsupportedGranularityError carries the offending groupBy value.
type UnsupportedGranularityError struct {
	Value string
}

func (e *UnsupportedGranularityError) Error() string {
	return fmt.Sprintf("unsupported granularity %q (want month, year, or week)", e.Value)
}

func (e *UnsupportedGranularityError) Unwrap() error { return ErrUnsupportedGranularity }

// RangeTooLargeError carries the window size and the configured cap.
type RangeTooLargeError struct {
	Days int
	Max  int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("window of %d days exceeds maximum of %d", e.Days, e.Max)
}

func (e *RangeTooLargeError) Unwrap() error { return ErrRangeTooLarge }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether the error is due to invalid caller input
// or a business-rule rejection, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidAdjustment) ||
		errors.Is(err, ErrRangeTooLarge) ||
		errors.Is(err, ErrUnsupportedGranularity)
}
