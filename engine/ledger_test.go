package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempo/leave-engine/engine"
	"github.com/tempo/leave-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*engine.BalanceLedger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveLeaveType(context.Background(), engine.LeaveType{
		ID: "vacation", Name: "Vacation", Paid: true, DefaultDays: 10, Active: true,
	}))
	return engine.NewBalanceLedger(mem), mem
}

// =============================================================================
// INITIALIZE TESTS
// =============================================================================

func TestLedger_Initialize(t *testing.T) {
	// GIVEN: A fresh store
	// WHEN: Initializing a bucket with 20 total days
	// THEN: The bucket exists with zero used and 20 remaining

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	b, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, b.TotalDays)
	assert.Equal(t, 0, b.UsedDays)
	assert.Equal(t, 20, b.Remaining())
}

func TestLedger_Initialize_DuplicateTriple_Rejected(t *testing.T) {
	// GIVEN: A bucket already initialized for (alice, vacation, 2026)
	// WHEN: Initializing the same triple again
	// THEN: ErrDuplicateLedgerEntry, and the original is untouched

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)

	_, err = ledger.Initialize(ctx, "alice", "vacation", 2026, 5)
	assert.ErrorIs(t, err, engine.ErrDuplicateLedgerEntry)

	b, err := mem.GetBalance(ctx, "alice", "vacation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 20, b.TotalDays)
}

func TestLedger_Initialize_SameUserDifferentYears(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)
	_, err = ledger.Initialize(ctx, "alice", "vacation", 2027, 20)
	require.NoError(t, err)
}

// =============================================================================
// CHARGE / RELEASE TESTS
// =============================================================================

func TestLedger_ChargeAndRelease_AreExactInverses(t *testing.T) {
	// GIVEN: A bucket with 20 total and 0 used
	// WHEN: Charging 5 then releasing 5
	// THEN: The bucket is back to 0 used, 20 remaining

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)

	b, err := ledger.Charge(ctx, "alice", "vacation", 2026, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, b.UsedDays)
	assert.Equal(t, 15, b.Remaining())

	b, err = ledger.Release(ctx, "alice", "vacation", 2026, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, b.UsedDays)
	assert.Equal(t, 20, b.Remaining())
}

func TestLedger_Charge_MissingBucket_FailsLoudly(t *testing.T) {
	// GIVEN: No bucket for (ghost, vacation, 2026)
	// WHEN: Charging it
	// THEN: ErrMissingBalance with the triple identified

	ledger, _ := newTestLedger(t)

	_, err := ledger.Charge(context.Background(), "ghost", "vacation", 2026, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrMissingBalance)

	var mbe *engine.MissingBalanceError
	require.True(t, errors.As(err, &mbe))
	assert.Equal(t, engine.UserID("ghost"), mbe.UserID)
	assert.Equal(t, 2026, mbe.Year)
}

func TestLedger_Release_DoesNotClampAtZero(t *testing.T) {
	// GIVEN: A bucket with 2 used days
	// WHEN: An admin lowered used to 2 and a 5-day release arrives
	// THEN: Used goes to -3 rather than silently losing days; the
	//       discrepancy stays visible for an admin to correct

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)
	_, err = ledger.Charge(ctx, "alice", "vacation", 2026, 2)
	require.NoError(t, err)

	b, err := ledger.Release(ctx, "alice", "vacation", 2026, 5)
	require.NoError(t, err)
	assert.Equal(t, -3, b.UsedDays)
	assert.Equal(t, 23, b.Remaining())
}

func TestLedger_UsedEqualsSumOfDeltas(t *testing.T) {
	// GIVEN: A sequence of charges and releases
	// WHEN: Applied in order
	// THEN: UsedDays equals the running sum of deltas at every step

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)

	deltas := []int{3, 2, -1, 4, -4, 1}
	sum := 0
	for _, delta := range deltas {
		var b *engine.Balance
		if delta >= 0 {
			b, err = ledger.Charge(ctx, "alice", "vacation", 2026, delta)
		} else {
			b, err = ledger.Release(ctx, "alice", "vacation", 2026, -delta)
		}
		require.NoError(t, err)
		sum += delta
		assert.Equal(t, sum, b.UsedDays)
		assert.Equal(t, b.TotalDays-b.UsedDays, b.Remaining())
	}
}

// =============================================================================
// ADJUST TESTS
// =============================================================================

func intPtr(n int) *int { return &n }

func TestLedger_Adjust_CreatesMissingBucketFromDefault(t *testing.T) {
	// GIVEN: No bucket for (alice, vacation, 2026); the type default is 10
	// WHEN: An admin sets used_days to 3
	// THEN: A bucket appears with total 10, used 3

	ledger, _ := newTestLedger(t)

	b, err := ledger.Adjust(context.Background(), "alice", "vacation", 2026, engine.Adjustment{
		UsedDays: intPtr(3),
		Reason:   "migrated from old system",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, b.TotalDays)
	assert.Equal(t, 3, b.UsedDays)
	assert.Equal(t, 7, b.Remaining())
}

func TestLedger_Adjust_PartialFieldsLeaveOthersUntouched(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "alice", "vacation", 2026, 20)
	require.NoError(t, err)
	_, err = ledger.Charge(ctx, "alice", "vacation", 2026, 4)
	require.NoError(t, err)

	// Only total changes; used stays at 4.
	b, err := ledger.Adjust(ctx, "alice", "vacation", 2026, engine.Adjustment{
		TotalDays: intPtr(25),
		Reason:    "tenure bump",
	})
	require.NoError(t, err)
	assert.Equal(t, 25, b.TotalDays)
	assert.Equal(t, 4, b.UsedDays)
}

func TestLedger_Adjust_NoFields_Rejected(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Adjust(context.Background(), "alice", "vacation", 2026, engine.Adjustment{
		Reason: "no-op",
	})
	assert.ErrorIs(t, err, engine.ErrInvalidAdjustment)
}

func TestLedger_Adjust_UnknownLeaveType(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Adjust(context.Background(), "alice", "nonexistent", 2026, engine.Adjustment{
		TotalDays: intPtr(5),
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
