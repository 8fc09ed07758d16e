/*
ledger.go - The per (user, leave type, year) balance ledger

PURPOSE:
  BalanceLedger owns all arithmetic on Balance records: initialization at
  onboarding, charge on approval, release on cancellation of an approved
  request, and manual administrative adjustment.

INVARIANTS:
  1. The (user, leave type, year) triple is unique; re-initialization
     fails with ErrDuplicateLedgerEntry.
  2. Remaining is always derived (Total - Used), never stored.
  3. Charge and Release are exact inverses: Release does not clamp at
     zero, so a charge followed by a release always nets to no change.
  4. The sum of all charge/release deltas ever applied equals UsedDays.

CHARGE ON A MISSING RECORD:
  Charging a triple with no record fails with MissingBalanceError. The
  alternative - silently doing nothing and leaving an approval with no
  balance trace - makes the ledger unauditable, so approvals against an
  unseeded balance fail loudly and an admin seeds via Adjust first.

SEE ALSO:
  - lifecycle.go: Calls Charge/Release inside the transition's unit of work
  - accrual.go: Seeds balances through Initialize
*/
package engine

import (
	"context"
	"fmt"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// BalanceLedger performs ledger arithmetic against a store. Construct it over
// the transactional view when the mutation must be atomic with other writes.
type BalanceLedger struct {
	Balances BalanceStore
	Types    LeaveTypeStore
}

// NewBalanceLedger creates a ledger over the given store.
func NewBalanceLedger(s Store) *BalanceLedger {
	return &BalanceLedger{Balances: s, Types: s}
}

// Initialize creates the (user, leave type, year) record with UsedDays = 0.
// Fails with ErrDuplicateLedgerEntry when the triple already exists.
func (l *BalanceLedger) Initialize(ctx context.Context, userID UserID, typeID LeaveTypeID, year, totalDays int) (*Balance, error) {
	existing, err := l.Balances.GetBalance(ctx, userID, typeID, year)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("initialize %s/%s/%d: %w", userID, typeID, year, ErrDuplicateLedgerEntry)
	}

	b := &Balance{
		UserID:      userID,
		LeaveTypeID: typeID,
		Year:        year,
		TotalDays:   totalDays,
		UsedDays:    0,
	}
	if err := l.Balances.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Charge increases UsedDays by days. Fails with MissingBalanceError when the
// triple has no record.
func (l *BalanceLedger) Charge(ctx context.Context, userID UserID, typeID LeaveTypeID, year, days int) (*Balance, error) {
	b, err := l.Balances.GetBalance(ctx, userID, typeID, year)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &MissingBalanceError{UserID: userID, LeaveTypeID: typeID, Year: year}
	}

	b.UsedDays += days
	if err := l.Balances.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Release decreases UsedDays by days, reversing an earlier charge. UsedDays
// may go negative; no clamping, so Charge and Release stay exact inverses.
func (l *BalanceLedger) Release(ctx context.Context, userID UserID, typeID LeaveTypeID, year, days int) (*Balance, error) {
	b, err := l.Balances.GetBalance(ctx, userID, typeID, year)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &MissingBalanceError{UserID: userID, LeaveTypeID: typeID, Year: year}
	}

	b.UsedDays -= days
	if err := l.Balances.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// =============================================================================
// ADMINISTRATIVE ADJUSTMENT
// =============================================================================

// Adjustment is an administrative override. Nil fields are left untouched.
type Adjustment struct {
	TotalDays *int
	UsedDays  *int
	Reason    string
}

// Adjust sets TotalDays and/or UsedDays directly, creating the record if
// absent. On creation, an unset total defaults to the leave type's annual
// allotment and an unset used count to zero. Fails with ErrInvalidAdjustment
// when both fields are nil.
func (l *BalanceLedger) Adjust(ctx context.Context, userID UserID, typeID LeaveTypeID, year int, adj Adjustment) (*Balance, error) {
	if adj.TotalDays == nil && adj.UsedDays == nil {
		return nil, ErrInvalidAdjustment
	}

	b, err := l.Balances.GetBalance(ctx, userID, typeID, year)
	if err != nil {
		return nil, err
	}

	if b == nil {
		lt, err := l.Types.GetLeaveType(ctx, typeID)
		if err != nil {
			return nil, err
		}
		if lt == nil {
			return nil, fmt.Errorf("leave type %s: %w", typeID, ErrNotFound)
		}
		b = &Balance{
			UserID:      userID,
			LeaveTypeID: typeID,
			Year:        year,
			TotalDays:   lt.DefaultDays,
			UsedDays:    0,
		}
	}

	if adj.TotalDays != nil {
		b.TotalDays = *adj.TotalDays
	}
	if adj.UsedDays != nil {
		b.UsedDays = *adj.UsedDays
	}

	if err := l.Balances.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
