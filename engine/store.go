/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the business logic and the database. The
  engine performs no locking itself: it relies on the store's optimistic
  version check and on WithTx to make each transition and its paired
  ledger mutation one atomic unit of work.

OPTIMISTIC CONCURRENCY:
  Request and Balance rows carry a Version counter. Save* compares the
  incoming version against the stored one and fails with
  ErrConcurrentModification on mismatch, then increments it. Two
  concurrent approvals of the same pending request therefore cannot both
  charge the ledger.

ATOMIC UNITS OF WORK:
  WithTx(fn) runs fn against a transactional view; if fn returns an
  error, every write inside it is rolled back. Approve = set review
  fields + charge ledger either fully applies or fully does not.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - engine/store: In-memory store for tests and dev

SEE ALSO:
  - lifecycle.go: Runs transitions inside WithTx
  - ledger.go: Operates on BalanceStore
*/
package engine

import "context"

// =============================================================================
// STORE INTERFACES
// =============================================================================

// BalanceStore persists ledger records.
type BalanceStore interface {
	// GetBalance returns the record for the triple, or nil when absent.
	GetBalance(ctx context.Context, userID UserID, typeID LeaveTypeID, year int) (*Balance, error)

	// SaveBalance inserts (Version == 0) or updates the record. Updates
	// fail with ErrConcurrentModification when the stored version differs
	// from b.Version; on success b.Version is advanced.
	SaveBalance(ctx context.Context, b *Balance) error

	// ListBalances returns all records for a user in a year.
	ListBalances(ctx context.Context, userID UserID, year int) ([]Balance, error)
}

// RequestStore persists time-off requests.
type RequestStore interface {
	// GetRequest returns the request, or nil when absent.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// SaveRequest inserts (Version == 0) or updates the request with the
	// same version semantics as SaveBalance.
	SaveRequest(ctx context.Context, r *Request) error

	// ListRequestsByUser returns a user's requests, newest first.
	ListRequestsByUser(ctx context.Context, userID UserID) ([]Request, error)

	// ListRequestsByStatus returns all requests in a status, oldest first.
	ListRequestsByStatus(ctx context.Context, status RequestStatus) ([]Request, error)

	// ListApprovedOverlapping returns approved requests whose ranges
	// intersect [from, to]. Used by the team calendar.
	ListApprovedOverlapping(ctx context.Context, from, to Date) ([]Request, error)
}

// HolidayStore persists public holidays.
type HolidayStore interface {
	// HolidaysInRange returns holidays with from <= date <= to.
	HolidaysInRange(ctx context.Context, from, to Date) ([]Holiday, error)

	// ListHolidays returns all holidays in a year, by date.
	ListHolidays(ctx context.Context, year int) ([]Holiday, error)

	// SaveHoliday inserts a holiday; fails with ErrDuplicateHoliday when
	// the date is taken.
	SaveHoliday(ctx context.Context, h Holiday) error

	// DeleteHoliday removes a holiday by ID.
	DeleteHoliday(ctx context.Context, id string) error
}

// LeaveTypeStore persists the leave type catalog.
type LeaveTypeStore interface {
	// GetLeaveType returns the type, or nil when absent.
	GetLeaveType(ctx context.Context, id LeaveTypeID) (*LeaveType, error)

	// ListLeaveTypes returns the catalog; inactive types are included only
	// when includeInactive is set.
	ListLeaveTypes(ctx context.Context, includeInactive bool) ([]LeaveType, error)

	// SaveLeaveType inserts or updates a type.
	SaveLeaveType(ctx context.Context, lt LeaveType) error
}

// UserStore persists employees.
type UserStore interface {
	// GetUser returns the user, or nil when absent.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// SaveUser inserts or updates a user.
	SaveUser(ctx context.Context, u User) error

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]User, error)
}

// Store aggregates everything the engine reads and writes.
type Store interface {
	BalanceStore
	RequestStore
	HolidayStore
	LeaveTypeStore
	UserStore
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-write operations
// =============================================================================

// TxStore wraps Store with transaction support. Transitions that touch both
// the request row and the ledger run inside WithTx.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
