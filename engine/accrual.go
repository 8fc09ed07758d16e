/*
accrual.go - Prorated first-year entitlement

PURPOSE:
  Derives a new hire's entitlement for the current year from a leave
  type's default annual allotment and the hire's start date, then seeds
  one Balance per active leave type at onboarding.

PRORATION:
  Whole months from the hire month through December, inclusive:

    hired July 1, 20 days/year -> round(6/12 * 20) = 10 days

  Hired in a future year relative to asOfYear -> 0.
  Hired in a past year -> the full default allotment.

  The arithmetic runs on decimals and rounds to the nearest whole day at
  the end, so 7/12 of 20 is 12 (11.67 rounded), not 11.

DETERMINISM:
  asOfYear is an explicit parameter. The engine never compares against
  wall-clock "now", which keeps Scenario-style tests exact.

SEE ALSO:
  - ledger.go: Initialize, called once per (user, active leave type)
*/
package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// =============================================================================
// ACCRUAL POLICY
// =============================================================================

// AccrualPolicy computes onboarding entitlements.
type AccrualPolicy struct {
	Ledger *BalanceLedger
	Types  LeaveTypeStore
}

// NewAccrualPolicy creates the policy over the given store.
func NewAccrualPolicy(s Store) *AccrualPolicy {
	return &AccrualPolicy{Ledger: NewBalanceLedger(s), Types: s}
}

// ProratedEntitlement returns the entitlement for asOfYear given the leave
// type's default annual allotment and the hire's start date.
func ProratedEntitlement(defaultDays int, startDate Date, asOfYear int) int {
	switch {
	case startDate.Year() > asOfYear:
		return 0
	case startDate.Year() < asOfYear:
		return defaultDays
	}

	// Whole months remaining: hire month through December, inclusive.
	remaining := decimal.NewFromInt(int64(12 - int(startDate.Month()) + 1))
	prorated := decimal.NewFromInt(int64(defaultDays)).Mul(remaining).Div(monthsPerYear)
	return int(prorated.Round(0).IntPart())
}

// SeedBalances initializes one Balance per active leave type for a new hire.
// Runs once at onboarding; an already-seeded triple surfaces as
// ErrDuplicateLedgerEntry.
func (ap *AccrualPolicy) SeedBalances(ctx context.Context, user User, asOfYear int) ([]Balance, error) {
	if user.StartDate == nil {
		return nil, nil
	}

	types, err := ap.Types.ListLeaveTypes(ctx, false)
	if err != nil {
		return nil, err
	}

	var seeded []Balance
	for _, lt := range types {
		entitled := ProratedEntitlement(lt.DefaultDays, *user.StartDate, asOfYear)
		b, err := ap.Ledger.Initialize(ctx, user.ID, lt.ID, asOfYear, entitled)
		if err != nil {
			return seeded, err
		}
		seeded = append(seeded, *b)
	}
	return seeded, nil
}
