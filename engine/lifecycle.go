/*
lifecycle.go - Request state machine

PURPOSE:
  Governs a request's path through the approval workflow and orchestrates
  the ledger side effects of each transition:

    submit -> pending                 freeze chargeable day count
    pending -> approved               charge ledger by frozen count
    pending -> rejected               no ledger effect
    pending -> cancelled              no ledger effect
    approved -> cancelled             release ledger by frozen count

  Every other transition fails with InvalidTransitionError. rejected and
  cancelled are terminal.

AT-MOST-ONCE CHARGE:
  A transition and its paired ledger mutation run in one unit of work
  (TxStore.WithTx), and the request row's version counter is checked on
  save. Two concurrent approvals both see pending, but the loser's save
  fails with ErrConcurrentModification and its charge rolls back.

AUTHORIZATION:
  Role facts arrive pre-resolved in Actor; ownership is a data comparison
  against the request's submitter. The engine never inspects credentials.

SEE ALSO:
  - calendar.go: BusinessDays, called exactly once per submission
  - ledger.go: Charge/Release called inside the unit of work
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LIFECYCLE SERVICE
// =============================================================================

// RequestLifecycle moves requests through the workflow. All transitions are
// synchronous: they complete or fail atomically, with no background work.
type RequestLifecycle struct {
	Store TxStore
}

// NewRequestLifecycle creates the lifecycle service over a transactional store.
func NewRequestLifecycle(store TxStore) *RequestLifecycle {
	return &RequestLifecycle{Store: store}
}

// ReviewFunc is the shared shape of Approve and Reject.
type ReviewFunc func(ctx context.Context, id RequestID, actor Actor, comment string, now time.Time) (*Request, error)

// SubmitInput carries everything a submission needs. Now is passed in so the
// engine never reads the wall clock.
type SubmitInput struct {
	UserID      UserID
	LeaveTypeID LeaveTypeID
	StartDate   Date
	EndDate     Date
	Comment     string
	Now         time.Time
}

// Submit validates the range, freezes the chargeable day count, and creates
// the request in pending. The count is computed from the holidays known at
// submission time and is never recomputed - holidays added later do not
// affect it, so an eventual release always matches the charge.
func (rl *RequestLifecycle) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("range %s..%s: %w", in.StartDate, in.EndDate, ErrInvalidDateRange)
	}

	lt, err := rl.Store.GetLeaveType(ctx, in.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	if lt == nil {
		return nil, fmt.Errorf("leave type %s: %w", in.LeaveTypeID, ErrNotFound)
	}
	if !lt.Active {
		return nil, fmt.Errorf("leave type %s is inactive: %w", in.LeaveTypeID, ErrNotFound)
	}

	holidays, err := rl.Store.HolidaysInRange(ctx, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:           RequestID(uuid.NewString()),
		UserID:       in.UserID,
		LeaveTypeID:  in.LeaveTypeID,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		BusinessDays: BusinessDays(in.StartDate, in.EndDate, NewHolidaySet(holidays)),
		Status:       StatusPending,
		Comment:      in.Comment,
		CreatedAt:    in.Now,
	}

	if err := rl.Store.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Approve moves a pending request to approved and charges the submitter's
// ledger for the start-date year by the frozen day count. The actor must be
// a manager or admin.
func (rl *RequestLifecycle) Approve(ctx context.Context, id RequestID, actor Actor, comment string, now time.Time) (*Request, error) {
	if !actor.CanReview {
		return nil, fmt.Errorf("approve: %w", ErrForbidden)
	}

	var approved *Request
	err := rl.Store.WithTx(ctx, func(s Store) error {
		req, err := loadRequest(ctx, s, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusApproved}
		}

		req.Status = StatusApproved
		req.ReviewerID = &actor.ID
		req.ReviewerComment = comment
		req.ReviewedAt = &now

		ledger := NewBalanceLedger(s)
		if _, err := ledger.Charge(ctx, req.UserID, req.LeaveTypeID, req.LedgerYear(), req.BusinessDays); err != nil {
			return err
		}

		if err := s.SaveRequest(ctx, req); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject moves a pending request to rejected. No ledger effect. The actor
// must be a manager or admin.
func (rl *RequestLifecycle) Reject(ctx context.Context, id RequestID, actor Actor, comment string, now time.Time) (*Request, error) {
	if !actor.CanReview {
		return nil, fmt.Errorf("reject: %w", ErrForbidden)
	}

	var rejected *Request
	err := rl.Store.WithTx(ctx, func(s Store) error {
		req, err := loadRequest(ctx, s, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusRejected}
		}

		req.Status = StatusRejected
		req.ReviewerID = &actor.ID
		req.ReviewerComment = comment
		req.ReviewedAt = &now

		if err := s.SaveRequest(ctx, req); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Cancel moves a pending or approved request to cancelled. Cancelling an
// approved request releases the frozen day count, exactly reversing the
// charge made on approval. The actor must be the owner or an admin.
func (rl *RequestLifecycle) Cancel(ctx context.Context, id RequestID, actor Actor) (*Request, error) {
	var cancelled *Request
	err := rl.Store.WithTx(ctx, func(s Store) error {
		req, err := loadRequest(ctx, s, id)
		if err != nil {
			return err
		}
		if actor.ID != req.UserID && !actor.IsAdmin {
			return fmt.Errorf("cancel: %w", ErrForbidden)
		}

		switch req.Status {
		case StatusPending:
			// No charge was made; nothing to release.
		case StatusApproved:
			ledger := NewBalanceLedger(s)
			if _, err := ledger.Release(ctx, req.UserID, req.LeaveTypeID, req.LedgerYear(), req.BusinessDays); err != nil {
				return err
			}
		default:
			return &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusCancelled}
		}

		req.Status = StatusCancelled
		if err := s.SaveRequest(ctx, req); err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func loadRequest(ctx context.Context, s Store, id RequestID) (*Request, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return req, nil
}
