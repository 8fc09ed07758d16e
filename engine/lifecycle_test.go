package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempo/leave-engine/engine"
	"github.com/tempo/leave-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	employee = engine.Actor{ID: "alice"}
	reviewer = engine.Actor{ID: "manager", CanReview: true}
	admin    = engine.Actor{ID: "admin", CanReview: true, IsAdmin: true}

	testNow = time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)
)

func newTestLifecycle(t *testing.T) (*engine.RequestLifecycle, *store.Memory) {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	require.NoError(t, mem.SaveLeaveType(ctx, engine.LeaveType{
		ID: "vacation", Name: "Vacation", Paid: true, DefaultDays: 20, Active: true,
	}))

	ledger := engine.NewBalanceLedger(mem)
	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)

	return engine.NewRequestLifecycle(mem), mem
}

func submitWeek(t *testing.T, rl *engine.RequestLifecycle) *engine.Request {
	t.Helper()
	req, err := rl.Submit(context.Background(), engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "vacation",
		StartDate:   d(2026, time.June, 1),
		EndDate:     d(2026, time.June, 5),
		Comment:     "summer break",
		Now:         testNow,
	})
	require.NoError(t, err)
	return req
}

func getBalance(t *testing.T, mem *store.Memory) *engine.Balance {
	t.Helper()
	b, err := mem.GetBalance(context.Background(), "alice", "vacation", 2026)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestLifecycle_Submit(t *testing.T) {
	// GIVEN: A valid Monday-Friday range
	// WHEN: Submitting
	// THEN: A pending request exists with 5 frozen business days and
	//       the balance is untouched

	rl, mem := newTestLifecycle(t)
	req := submitWeek(t, rl)

	assert.Equal(t, engine.StatusPending, req.Status)
	assert.Equal(t, 5, req.BusinessDays)
	assert.Equal(t, 0, getBalance(t, mem).UsedDays)
}

func TestLifecycle_Submit_EndBeforeStart_Rejected(t *testing.T) {
	rl, _ := newTestLifecycle(t)

	_, err := rl.Submit(context.Background(), engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "vacation",
		StartDate:   d(2026, time.June, 5),
		EndDate:     d(2026, time.June, 1),
		Now:         testNow,
	})
	assert.ErrorIs(t, err, engine.ErrInvalidDateRange)
}

func TestLifecycle_Submit_UnknownLeaveType_Rejected(t *testing.T) {
	rl, _ := newTestLifecycle(t)

	_, err := rl.Submit(context.Background(), engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "jury-duty",
		StartDate:   d(2026, time.June, 1),
		EndDate:     d(2026, time.June, 5),
		Now:         testNow,
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestLifecycle_Submit_InactiveLeaveType_Rejected(t *testing.T) {
	rl, mem := newTestLifecycle(t)
	require.NoError(t, mem.SaveLeaveType(context.Background(), engine.LeaveType{
		ID: "retired", Name: "Retired Type", DefaultDays: 5, Active: false,
	}))

	_, err := rl.Submit(context.Background(), engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "retired",
		StartDate:   d(2026, time.June, 1),
		EndDate:     d(2026, time.June, 5),
		Now:         testNow,
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestLifecycle_Submit_CountsHolidaysKnownAtSubmission(t *testing.T) {
	// GIVEN: Wednesday June 3 is a holiday before submission
	// WHEN: Submitting Mon-Fri
	// THEN: 4 days are frozen

	rl, mem := newTestLifecycle(t)
	require.NoError(t, mem.SaveHoliday(context.Background(), engine.Holiday{
		ID: "h1", Date: d(2026, time.June, 3), Name: "Founders Day", Year: 2026,
	}))

	req, err := rl.Submit(context.Background(), engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "vacation",
		StartDate:   d(2026, time.June, 1),
		EndDate:     d(2026, time.June, 5),
		Now:         testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, req.BusinessDays)
}

func TestLifecycle_FrozenCount_UnaffectedByLaterHolidays(t *testing.T) {
	// GIVEN: A request submitted before June 3 became a holiday
	// WHEN: The holiday is added and the request approved
	// THEN: The original 5-day count is charged, not 4

	rl, mem := newTestLifecycle(t)
	ctx := context.Background()
	req := submitWeek(t, rl)

	require.NoError(t, mem.SaveHoliday(ctx, engine.Holiday{
		ID: "h1", Date: d(2026, time.June, 3), Name: "Founders Day", Year: 2026,
	}))

	approved, err := rl.Approve(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, approved.BusinessDays)
	assert.Equal(t, 5, getBalance(t, mem).UsedDays)
}

// =============================================================================
// APPROVAL TESTS
// =============================================================================

func TestLifecycle_Approve_ChargesFrozenCount(t *testing.T) {
	// GIVEN: A pending 5-day request against a 20/0 balance
	// WHEN: A reviewer approves it
	// THEN: The request is approved and the balance shows 5 used, 15 remaining

	rl, mem := newTestLifecycle(t)
	req := submitWeek(t, rl)

	approved, err := rl.Approve(context.Background(), req.ID, reviewer, "enjoy", testNow)
	require.NoError(t, err)

	assert.Equal(t, engine.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewerID)
	assert.Equal(t, engine.UserID("manager"), *approved.ReviewerID)
	assert.Equal(t, "enjoy", approved.ReviewerComment)

	b := getBalance(t, mem)
	assert.Equal(t, 5, b.UsedDays)
	assert.Equal(t, 15, b.Remaining())
}

func TestLifecycle_Approve_WithoutReviewCapability_Forbidden(t *testing.T) {
	rl, mem := newTestLifecycle(t)
	req := submitWeek(t, rl)

	_, err := rl.Approve(context.Background(), req.ID, employee, "", testNow)
	assert.ErrorIs(t, err, engine.ErrForbidden)
	assert.Equal(t, 0, getBalance(t, mem).UsedDays)
}

func TestLifecycle_Approve_Twice_SecondFails(t *testing.T) {
	// GIVEN: An approved request
	// WHEN: Approving it again
	// THEN: Invalid transition, and the balance is charged exactly once

	rl, mem := newTestLifecycle(t)
	ctx := context.Background()
	req := submitWeek(t, rl)

	_, err := rl.Approve(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)

	_, err = rl.Approve(ctx, req.ID, reviewer, "", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	var ite *engine.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, engine.StatusApproved, ite.From)

	assert.Equal(t, 5, getBalance(t, mem).UsedDays)
}

func TestLifecycle_Approve_MissingBalance_LeavesRequestPending(t *testing.T) {
	// GIVEN: A pending request with no balance bucket for its year
	// WHEN: Approving
	// THEN: The approval fails with ErrMissingBalance and the request
	//       stays pending; nothing half-commits

	rl, mem := newTestLifecycle(t)
	ctx := context.Background()

	req, err := rl.Submit(ctx, engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "vacation",
		StartDate:   d(2027, time.June, 1),
		EndDate:     d(2027, time.June, 5),
		Now:         testNow,
	})
	require.NoError(t, err)

	_, err = rl.Approve(ctx, req.ID, reviewer, "", testNow)
	assert.ErrorIs(t, err, engine.ErrMissingBalance)

	stored, err := mem.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, stored.Status)
}

func TestLifecycle_Approve_NotFound(t *testing.T) {
	rl, _ := newTestLifecycle(t)

	_, err := rl.Approve(context.Background(), "no-such-request", reviewer, "", testNow)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// =============================================================================
// REJECTION TESTS
// =============================================================================

func TestLifecycle_Reject_NoLedgerEffect(t *testing.T) {
	rl, mem := newTestLifecycle(t)
	req := submitWeek(t, rl)

	rejected, err := rl.Reject(context.Background(), req.ID, reviewer, "coverage gap", testNow)
	require.NoError(t, err)

	assert.Equal(t, engine.StatusRejected, rejected.Status)
	assert.Equal(t, "coverage gap", rejected.ReviewerComment)
	assert.Equal(t, 0, getBalance(t, mem).UsedDays)
}

func TestLifecycle_Reject_NonPending_Rejected(t *testing.T) {
	rl, _ := newTestLifecycle(t)
	ctx := context.Background()
	req := submitWeek(t, rl)

	_, err := rl.Reject(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)

	_, err = rl.Reject(ctx, req.ID, reviewer, "", testNow)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestLifecycle_Cancel_Pending_NoLedgerEffect(t *testing.T) {
	rl, mem := newTestLifecycle(t)
	req := submitWeek(t, rl)

	cancelled, err := rl.Cancel(context.Background(), req.ID, employee)
	require.NoError(t, err)

	assert.Equal(t, engine.StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, getBalance(t, mem).UsedDays)
}

func TestLifecycle_Cancel_Approved_ReleasesCharge(t *testing.T) {
	// GIVEN: An approved 5-day request (5 used)
	// WHEN: The owner cancels it
	// THEN: The 5 days return; used is 0 and remaining is 20 again

	rl, mem := newTestLifecycle(t)
	ctx := context.Background()
	req := submitWeek(t, rl)

	_, err := rl.Approve(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)
	require.Equal(t, 5, getBalance(t, mem).UsedDays)

	cancelled, err := rl.Cancel(ctx, req.ID, employee)
	require.NoError(t, err)

	assert.Equal(t, engine.StatusCancelled, cancelled.Status)
	b := getBalance(t, mem)
	assert.Equal(t, 0, b.UsedDays)
	assert.Equal(t, 20, b.Remaining())
}

func TestLifecycle_Cancel_SomeoneElsesRequest_Forbidden(t *testing.T) {
	rl, _ := newTestLifecycle(t)
	req := submitWeek(t, rl)

	other := engine.Actor{ID: "mallory"}
	_, err := rl.Cancel(context.Background(), req.ID, other)
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

func TestLifecycle_Cancel_AdminMayCancelForOthers(t *testing.T) {
	rl, _ := newTestLifecycle(t)
	req := submitWeek(t, rl)

	cancelled, err := rl.Cancel(context.Background(), req.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCancelled, cancelled.Status)
}

func TestLifecycle_Cancel_Rejected_InvalidTransition(t *testing.T) {
	rl, _ := newTestLifecycle(t)
	ctx := context.Background()
	req := submitWeek(t, rl)

	_, err := rl.Reject(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)

	_, err = rl.Cancel(ctx, req.ID, employee)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestLifecycle_Cancel_Twice_SecondFails(t *testing.T) {
	// GIVEN: An approved request cancelled once (release applied)
	// WHEN: Cancelling again
	// THEN: Invalid transition; the release happened at most once

	rl, mem := newTestLifecycle(t)
	ctx := context.Background()
	req := submitWeek(t, rl)

	_, err := rl.Approve(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)
	_, err = rl.Cancel(ctx, req.ID, employee)
	require.NoError(t, err)

	_, err = rl.Cancel(ctx, req.ID, employee)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
	assert.Equal(t, 0, getBalance(t, mem).UsedDays)
}

// =============================================================================
// YEAR BUCKETING
// =============================================================================

func TestLifecycle_CrossYearRequest_ChargesStartYear(t *testing.T) {
	// GIVEN: A request spanning Dec 28, 2026 - Jan 1, 2027
	// WHEN: Approved
	// THEN: All days charge the 2026 bucket; 2027 is untouched

	rl, mem := newTestLifecycle(t)
	ctx := context.Background()

	ledger := engine.NewBalanceLedger(mem)
	_, err := ledger.Initialize(ctx, "alice", "vacation", 2027, 20)
	require.NoError(t, err)

	req, err := rl.Submit(ctx, engine.SubmitInput{
		UserID:      "alice",
		LeaveTypeID: "vacation",
		StartDate:   d(2026, time.December, 28),
		EndDate:     d(2027, time.January, 1),
		Now:         testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 2026, req.LedgerYear())

	_, err = rl.Approve(ctx, req.ID, reviewer, "", testNow)
	require.NoError(t, err)

	b2026 := getBalance(t, mem)
	assert.Equal(t, 5, b2026.UsedDays)

	b2027, err := mem.GetBalance(ctx, "alice", "vacation", 2027)
	require.NoError(t, err)
	assert.Equal(t, 0, b2027.UsedDays)
}
