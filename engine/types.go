/*
Package engine provides the vacation accounting core.

PURPOSE:
  This package contains the business logic for employee leave tracking:
  converting a date range into a chargeable day count, moving requests
  through the approval workflow, and keeping the per-employee day-count
  ledger numerically consistent.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: A category of leave with an annual day allotment
  - Balance: The (user, leave type, year) ledger record
  - Request: A time-off request with a frozen chargeable day count
  - User: Employee record with role and onboarding start date

DESIGN PRINCIPLES:
  1. Frozen counts: A request's chargeable day count is computed once at
     submission and never recomputed, even if holidays change later.
  2. Derived reads: Remaining balance is always Total - Used, never stored.
  3. Pre-resolved authorization: The engine receives "actor is
     manager-or-admin" as a fact; it never inspects credentials.
  4. Explicit time: Operations take the reference year/timestamp as a
     parameter instead of reading the wall clock.

SEE ALSO:
  - calendar.go: Business-day calculation over dates and holidays
  - ledger.go: Balance initialization, charge, release, adjustment
  - lifecycle.go: Request state machine
  - accrual.go: Prorated first-year entitlement
*/
package engine

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type LeaveTypeID string
type RequestID string

// =============================================================================
// ROLES - Carried as data; authorization decisions happen at the boundary
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Actor carries pre-resolved authorization facts into the engine.
// The HTTP layer (or a test) decides these; the engine only consults them.
type Actor struct {
	ID UserID

	// True when the actor's role is manager or admin.
	CanReview bool

	// True when the actor's role is admin.
	IsAdmin bool
}

// =============================================================================
// LEAVE TYPE - A category of leave (vacation, sick, ...)
// =============================================================================

// LeaveType defines a category of leave and its default annual allotment.
// Deactivating a type hides it from new submissions but existing balances
// and requests that reference it remain valid.
type LeaveType struct {
	ID          LeaveTypeID
	Name        string
	Paid        bool
	DefaultDays int
	Color       string
	Active      bool
}

// =============================================================================
// HOLIDAY - A single non-working calendar date
// =============================================================================

// Holiday is a public holiday. At most one holiday may exist per calendar
// date system-wide; the store enforces the uniqueness.
type Holiday struct {
	ID   string
	Date Date
	Name string
	Year int
}

// =============================================================================
// BALANCE - The (user, leave type, year) ledger record
// =============================================================================

// Balance is the day-count ledger entry for one user, leave type, and year.
// The triple is unique. UsedDays may go negative transiently when charge and
// release pairs are mismatched; the engine does not clamp so that the two
// operations stay exactly inverse.
type Balance struct {
	UserID      UserID
	LeaveTypeID LeaveTypeID
	Year        int
	TotalDays   int
	UsedDays    int

	// Version is the optimistic-concurrency token checked by the store on
	// save. It is opaque to the engine.
	Version int64
}

// Remaining returns TotalDays - UsedDays. It is always derived, never stored,
// so the two can never diverge.
func (b Balance) Remaining() int {
	return b.TotalDays - b.UsedDays
}

// =============================================================================
// REQUEST - A time-off request
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Request is a single time-off request. BusinessDays is frozen at submission:
// it is never recomputed, so an approved request's charge always matches what
// was released if the request is later cancelled.
type Request struct {
	ID          RequestID
	UserID      UserID
	LeaveTypeID LeaveTypeID
	StartDate   Date
	EndDate     Date

	// Chargeable day count, computed once at submission.
	BusinessDays int

	Status  RequestStatus
	Comment string

	// Review tracking; nil until reviewed.
	ReviewerID      *UserID
	ReviewerComment string
	ReviewedAt      *time.Time

	CreatedAt time.Time

	// Version is the optimistic-concurrency token checked by the store on
	// save. Two concurrent approvals of the same request cannot both win.
	Version int64
}

// LedgerYear returns the year whose balance absorbs this request's charge.
// Cross-year ranges bucket entirely into the start-date year.
func (r Request) LedgerYear() int {
	return r.StartDate.Year()
}

// =============================================================================
// USER - Employee record
// =============================================================================

// User is an employee. Approvers is routing data only; the engine does not
// implement approval routing beyond "who may review".
type User struct {
	ID        UserID
	Email     string
	Name      string
	Role      Role
	ManagerID *UserID

	// Onboarding start date; nil for users hired before the system existed.
	StartDate *Date

	Active    bool
	Approvers []UserID
	CreatedAt time.Time
}
