/*
seed.go - Demo data loader for development and demos

PURPOSE:
  Populates an empty database with a realistic starting state: the
  standard leave type catalog, a handful of users across roles, US
  public holidays, and seeded balances.

HOW IT WORKS:
 1. Create the four standard leave types
 2. Create admin, manager, and employee users
 3. Seed each user's current-year balances (prorated by start date)
 4. Add the fixed-date public holidays for the current year

NOTE:
  Seed is idempotent on leave types and users (upserts) but will skip
  entirely if any user already exists. Only use in development/demo
  environments.

SEE ALSO:
  - engine/accrual.go: Prorated first-year entitlement
  - cmd/server/main.go: Invokes Seed behind the -seed flag
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tempo/leave-engine/engine"
)

// Seed loads demo data into an empty store. It is a no-op when users
// already exist.
func Seed(ctx context.Context, store engine.TxStore, now time.Time) error {
	existing, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	// Standard leave type catalog.
	types := []engine.LeaveType{
		{ID: "vacation", Name: "Vacation", Paid: true, DefaultDays: 20, Color: "#3B82F6", Active: true},
		{ID: "sick", Name: "Sick Leave", Paid: true, DefaultDays: 10, Color: "#EF4444", Active: true},
		{ID: "personal", Name: "Personal Day", Paid: true, DefaultDays: 3, Color: "#8B5CF6", Active: true},
		{ID: "unpaid", Name: "Unpaid Leave", Paid: false, DefaultDays: 0, Color: "#6B7280", Active: true},
	}
	for _, lt := range types {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return fmt.Errorf("failed to seed leave type %s: %w", lt.ID, err)
		}
	}

	// Users: one admin, one manager, two reports. Everyone but the new
	// hire started in a prior year and gets full entitlements.
	janFirst := engine.NewDate(now.Year()-2, time.January, 15)
	midYear := engine.NewDate(now.Year(), time.July, 1)

	adminID := engine.UserID("admin")
	managerID := engine.UserID("manager")

	users := []engine.User{
		{
			ID: adminID, Email: "admin@example.com", Name: "Avery Admin",
			Role: engine.RoleAdmin, StartDate: &janFirst, Active: true, CreatedAt: now,
		},
		{
			ID: managerID, Email: "manager@example.com", Name: "Morgan Manager",
			Role: engine.RoleManager, StartDate: &janFirst, Active: true, CreatedAt: now,
		},
		{
			ID: "alice", Email: "alice@example.com", Name: "Alice Example",
			Role: engine.RoleEmployee, ManagerID: &managerID, StartDate: &janFirst,
			Approvers: []engine.UserID{managerID}, Active: true, CreatedAt: now,
		},
		{
			ID: "bob", Email: "bob@example.com", Name: "Bob Newhire",
			Role: engine.RoleEmployee, ManagerID: &managerID, StartDate: &midYear,
			Approvers: []engine.UserID{managerID}, Active: true, CreatedAt: now,
		},
	}

	accrual := engine.NewAccrualPolicy(store)
	for _, u := range users {
		if err := store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
		if _, err := accrual.SeedBalances(ctx, u, now.Year()); err != nil {
			return fmt.Errorf("failed to seed balances for %s: %w", u.ID, err)
		}
	}

	// Fixed-date US public holidays for the current year.
	holidays := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 1, "New Year's Day"},
		{time.July, 4, "Independence Day"},
		{time.November, 11, "Veterans Day"},
		{time.December, 25, "Christmas Day"},
	}
	for _, h := range holidays {
		hol := engine.Holiday{
			ID:   uuid.NewString(),
			Date: engine.NewDate(now.Year(), h.month, h.day),
			Name: h.name,
			Year: now.Year(),
		}
		if err := store.SaveHoliday(ctx, hol); err != nil {
			return fmt.Errorf("failed to seed holiday %s: %w", h.name, err)
		}
	}

	return nil
}
