/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All engine errors in one place for consistency and discoverability.
  Every error here is a deterministic validation failure: never retried
  (except ErrConcurrentModification), always surfaced verbatim for the
  caller to translate into a user-facing response.

ERROR CATEGORIES:
  1. Validation errors - Bad input (date ranges, empty adjustments)
  2. State errors      - Illegal transitions, duplicate ledger entries
  3. Store errors      - Missing rows, optimistic-lock conflicts

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, engine.ErrInvalidTransition) {
        // 400
    }

SEE ALSO:
  - ledger.go: Uses the ledger errors
  - lifecycle.go: Uses the transition errors
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
	// ErrInvalidDateRange is returned when a request's end date precedes
	// its start date. The calculator is never invoked in that case.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrInvalidTransition is returned for any illegal state change, e.g.
	// rejecting an approved request or approving one twice.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateLedgerEntry is returned when initializing a
	// (user, leave type, year) triple that already exists.
	ErrDuplicateLedgerEntry = errors.New("ledger entry already exists")

	// ErrInvalidAdjustment is returned when an adjustment supplies neither
	// a new total nor a new used count.
	ErrInvalidAdjustment = errors.New("adjustment must set total or used days")

	// ErrMissingBalance is returned when charging a (user, leave type, year)
	// triple that has no ledger record. Approvals fail loudly instead of
	// leaving no balance trace.
	ErrMissingBalance = errors.New("no balance record for ledger triple")

	// ErrDuplicateHoliday is returned when creating a holiday on a date
	// that already has one.
	ErrDuplicateHoliday = errors.New("holiday already exists for date")

	// ErrNotFound is returned when a referenced user, leave type, request,
	// or balance is absent.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when an optimistic version
	// check fails on save. Safe to retry after reloading.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrForbidden is returned when the supplied actor facts do not permit
	// the attempted transition.
	ErrForbidden = errors.New("actor not permitted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError reports the exact illegal state change attempted.
type InvalidTransitionError struct {
	RequestID RequestID
	From      RequestStatus
	To        RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move request %s from %s to %s", e.RequestID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// MissingBalanceError identifies the absent ledger triple.
type MissingBalanceError struct {
	UserID      UserID
	LeaveTypeID LeaveTypeID
	Year        int
}

func (e *MissingBalanceError) Error() string {
	return fmt.Sprintf("no balance for user %s, type %s, year %d", e.UserID, e.LeaveTypeID, e.Year)
}

func (e *MissingBalanceError) Unwrap() error {
	return ErrMissingBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidAdjustment) ||
		errors.Is(err, ErrDuplicateLedgerEntry) ||
		errors.Is(err, ErrDuplicateHoliday) ||
		errors.Is(err, ErrMissingBalance)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
