package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempo/leave-engine/engine"
	"github.com/tempo/leave-engine/engine/store"
)

// =============================================================================
// PRORATION TESTS
// =============================================================================

func TestProratedEntitlement_MidYearHire(t *testing.T) {
	// GIVEN: A hire on July 1 with a 20-day default
	// WHEN: Computing the first-year entitlement
	// THEN: 6 remaining months of 12 gives 10 days

	got := engine.ProratedEntitlement(20, d(2026, time.July, 1), 2026)
	assert.Equal(t, 10, got)
}

func TestProratedEntitlement_ByHireMonth(t *testing.T) {
	// Default of 20 days across every hire month. The formula is
	// round((12 - hireMonth + 1) / 12 * default).
	cases := []struct {
		month time.Month
		want  int
	}{
		{time.January, 20},
		{time.February, 18},
		{time.March, 17},
		{time.April, 15},
		{time.May, 13},
		{time.June, 12},
		{time.July, 10},
		{time.August, 8},
		{time.September, 7},
		{time.October, 5},
		{time.November, 3},
		{time.December, 2},
	}
	for _, tc := range cases {
		t.Run(tc.month.String(), func(t *testing.T) {
			got := engine.ProratedEntitlement(20, d(2026, tc.month, 15), 2026)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProratedEntitlement_RoundsHalfUp(t *testing.T) {
	// 10 defaults, October hire: 3/12 * 10 = 2.5, rounds to 3.
	got := engine.ProratedEntitlement(10, d(2026, time.October, 1), 2026)
	assert.Equal(t, 3, got)
}

func TestProratedEntitlement_PriorYearHire_FullDefault(t *testing.T) {
	got := engine.ProratedEntitlement(20, d(2024, time.September, 1), 2026)
	assert.Equal(t, 20, got)
}

func TestProratedEntitlement_FutureHire_Zero(t *testing.T) {
	got := engine.ProratedEntitlement(20, d(2027, time.March, 1), 2026)
	assert.Equal(t, 0, got)
}

func TestProratedEntitlement_ZeroDefault(t *testing.T) {
	// Unpaid leave carries no allotment regardless of hire date.
	got := engine.ProratedEntitlement(0, d(2026, time.July, 1), 2026)
	assert.Equal(t, 0, got)
}

// =============================================================================
// BALANCE SEEDING TESTS
// =============================================================================

func newTestAccrual(t *testing.T) (*engine.AccrualPolicy, *store.Memory) {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	types := []engine.LeaveType{
		{ID: "vacation", Name: "Vacation", Paid: true, DefaultDays: 20, Active: true},
		{ID: "sick", Name: "Sick Leave", Paid: true, DefaultDays: 10, Active: true},
		{ID: "retired", Name: "Old Type", Paid: true, DefaultDays: 15, Active: false},
	}
	for _, lt := range types {
		require.NoError(t, mem.SaveLeaveType(ctx, lt))
	}
	return engine.NewAccrualPolicy(mem), mem
}

func TestSeedBalances_ProratesEveryActiveType(t *testing.T) {
	// GIVEN: A July 1 hire and active types with defaults 20 and 10
	// WHEN: Seeding 2026 balances
	// THEN: Buckets appear with 10 and 5 days; the inactive type is skipped

	accrual, mem := newTestAccrual(t)
	ctx := context.Background()

	hire := d(2026, time.July, 1)
	user := engine.User{ID: "bob", Email: "bob@example.com", Name: "Bob", StartDate: &hire, Active: true}

	seeded, err := accrual.SeedBalances(ctx, user, 2026)
	require.NoError(t, err)
	assert.Len(t, seeded, 2)

	vacation, err := mem.GetBalance(ctx, "bob", "vacation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 10, vacation.TotalDays)
	assert.Equal(t, 0, vacation.UsedDays)

	sick, err := mem.GetBalance(ctx, "bob", "sick", 2026)
	require.NoError(t, err)
	assert.Equal(t, 5, sick.TotalDays)

	retired, err := mem.GetBalance(ctx, "bob", "retired", 2026)
	require.NoError(t, err)
	assert.Nil(t, retired)
}

func TestSeedBalances_NoStartDate_NoOp(t *testing.T) {
	accrual, mem := newTestAccrual(t)
	ctx := context.Background()

	user := engine.User{ID: "bob", Email: "bob@example.com", Name: "Bob", Active: true}
	seeded, err := accrual.SeedBalances(ctx, user, 2026)
	require.NoError(t, err)
	assert.Empty(t, seeded)

	b, err := mem.GetBalance(ctx, "bob", "vacation", 2026)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSeedBalances_PriorYearHire_FullAllotments(t *testing.T) {
	accrual, mem := newTestAccrual(t)
	ctx := context.Background()

	hire := d(2023, time.March, 10)
	user := engine.User{ID: "carol", Email: "carol@example.com", Name: "Carol", StartDate: &hire, Active: true}

	_, err := accrual.SeedBalances(ctx, user, 2026)
	require.NoError(t, err)

	vacation, err := mem.GetBalance(ctx, "carol", "vacation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 20, vacation.TotalDays)
}
