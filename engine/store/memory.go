// Package store provides an in-memory engine.Store implementation
// for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tempo/leave-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type balanceKey struct {
	UserID      engine.UserID
	LeaveTypeID engine.LeaveTypeID
	Year        int
}

type Memory struct {
	mu         sync.RWMutex
	balances   map[balanceKey]engine.Balance
	requests   map[engine.RequestID]engine.Request
	holidays   map[string]engine.Holiday // keyed by ID
	leaveTypes map[engine.LeaveTypeID]engine.LeaveType
	users      map[engine.UserID]engine.User
}

func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[balanceKey]engine.Balance),
		requests:   make(map[engine.RequestID]engine.Request),
		holidays:   make(map[string]engine.Holiday),
		leaveTypes: make(map[engine.LeaveTypeID]engine.LeaveType),
		users:      make(map[engine.UserID]engine.User),
	}
}

var _ engine.TxStore = (*Memory)(nil)

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) GetBalance(_ context.Context, userID engine.UserID, typeID engine.LeaveTypeID, year int) (*engine.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBalanceLocked(userID, typeID, year), nil
}

func (m *Memory) getBalanceLocked(userID engine.UserID, typeID engine.LeaveTypeID, year int) *engine.Balance {
	b, ok := m.balances[balanceKey{userID, typeID, year}]
	if !ok {
		return nil
	}
	copied := b
	return &copied
}

func (m *Memory) SaveBalance(_ context.Context, b *engine.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveBalanceLocked(b)
}

func (m *Memory) saveBalanceLocked(b *engine.Balance) error {
	k := balanceKey{b.UserID, b.LeaveTypeID, b.Year}
	existing, ok := m.balances[k]
	if ok && existing.Version != b.Version {
		return engine.ErrConcurrentModification
	}
	if !ok && b.Version != 0 {
		return engine.ErrConcurrentModification
	}
	b.Version++
	m.balances[k] = *b
	return nil
}

func (m *Memory) ListBalances(_ context.Context, userID engine.UserID, year int) ([]engine.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Balance
	for k, b := range m.balances {
		if k.UserID == userID && k.Year == year {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LeaveTypeID < result[j].LeaveTypeID })
	return result, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) GetRequest(_ context.Context, id engine.RequestID) (*engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id), nil
}

func (m *Memory) getRequestLocked(id engine.RequestID) *engine.Request {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	copied := r
	return &copied
}

func (m *Memory) SaveRequest(_ context.Context, r *engine.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveRequestLocked(r)
}

func (m *Memory) saveRequestLocked(r *engine.Request) error {
	existing, ok := m.requests[r.ID]
	if ok && existing.Version != r.Version {
		return engine.ErrConcurrentModification
	}
	if !ok && r.Version != 0 {
		return engine.ErrConcurrentModification
	}
	r.Version++
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) ListRequestsByUser(_ context.Context, userID engine.UserID) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Request
	for _, r := range m.requests {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ListRequestsByStatus(_ context.Context, status engine.RequestStatus) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Request
	for _, r := range m.requests {
		if r.Status == status {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ListApprovedOverlapping(_ context.Context, from, to engine.Date) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Request
	for _, r := range m.requests {
		if r.Status == engine.StatusApproved &&
			r.StartDate.BeforeOrEqual(to) && r.EndDate.AfterOrEqual(from) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) HolidaysInRange(_ context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Holiday
	for _, h := range m.holidays {
		if h.Date.AfterOrEqual(from) && h.Date.BeforeOrEqual(to) {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) ListHolidays(_ context.Context, year int) ([]engine.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Holiday
	for _, h := range m.holidays {
		if h.Year == year {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h engine.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// One holiday per calendar date system-wide.
	for _, existing := range m.holidays {
		if existing.Date.Equal(h.Date) && existing.ID != h.ID {
			return engine.ErrDuplicateHoliday
		}
	}
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (m *Memory) GetLeaveType(_ context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lt, ok := m.leaveTypes[id]
	if !ok {
		return nil, nil
	}
	copied := lt
	return &copied, nil
}

func (m *Memory) ListLeaveTypes(_ context.Context, includeInactive bool) ([]engine.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.LeaveType
	for _, lt := range m.leaveTypes {
		if lt.Active || includeInactive {
			result = append(result, lt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveLeaveType(_ context.Context, lt engine.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveTypes[lt.ID] = lt
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) GetUser(_ context.Context, id engine.UserID) (*engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := u
	return &copied, nil
}

func (m *Memory) SaveUser(_ context.Context, u engine.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.User
	for _, u := range m.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(engine.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	view := &txView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	balances map[balanceKey]engine.Balance
	requests map[engine.RequestID]engine.Request
}

func (m *Memory) snapshot() memorySnapshot {
	balances := make(map[balanceKey]engine.Balance, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	requests := make(map[engine.RequestID]engine.Request, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}
	return memorySnapshot{balances: balances, requests: requests}
}

func (m *Memory) restore(s memorySnapshot) {
	m.balances = s.balances
	m.requests = s.requests
}

// txView accesses the parent's maps directly; the parent holds the write
// lock for the duration of WithTx.
type txView struct {
	parent *Memory
}

var _ engine.Store = (*txView)(nil)

func (v *txView) GetBalance(_ context.Context, userID engine.UserID, typeID engine.LeaveTypeID, year int) (*engine.Balance, error) {
	return v.parent.getBalanceLocked(userID, typeID, year), nil
}

func (v *txView) SaveBalance(_ context.Context, b *engine.Balance) error {
	return v.parent.saveBalanceLocked(b)
}

func (v *txView) ListBalances(_ context.Context, userID engine.UserID, year int) ([]engine.Balance, error) {
	var result []engine.Balance
	for k, b := range v.parent.balances {
		if k.UserID == userID && k.Year == year {
			result = append(result, b)
		}
	}
	return result, nil
}

func (v *txView) GetRequest(_ context.Context, id engine.RequestID) (*engine.Request, error) {
	return v.parent.getRequestLocked(id), nil
}

func (v *txView) SaveRequest(_ context.Context, r *engine.Request) error {
	return v.parent.saveRequestLocked(r)
}

func (v *txView) ListRequestsByUser(_ context.Context, userID engine.UserID) ([]engine.Request, error) {
	var result []engine.Request
	for _, r := range v.parent.requests {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (v *txView) ListRequestsByStatus(_ context.Context, status engine.RequestStatus) ([]engine.Request, error) {
	var result []engine.Request
	for _, r := range v.parent.requests {
		if r.Status == status {
			result = append(result, r)
		}
	}
	return result, nil
}

func (v *txView) ListApprovedOverlapping(_ context.Context, from, to engine.Date) ([]engine.Request, error) {
	var result []engine.Request
	for _, r := range v.parent.requests {
		if r.Status == engine.StatusApproved &&
			r.StartDate.BeforeOrEqual(to) && r.EndDate.AfterOrEqual(from) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (v *txView) HolidaysInRange(_ context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	var result []engine.Holiday
	for _, h := range v.parent.holidays {
		if h.Date.AfterOrEqual(from) && h.Date.BeforeOrEqual(to) {
			result = append(result, h)
		}
	}
	return result, nil
}

func (v *txView) ListHolidays(_ context.Context, year int) ([]engine.Holiday, error) {
	var result []engine.Holiday
	for _, h := range v.parent.holidays {
		if h.Year == year {
			result = append(result, h)
		}
	}
	return result, nil
}

func (v *txView) SaveHoliday(_ context.Context, h engine.Holiday) error {
	for _, existing := range v.parent.holidays {
		if existing.Date.Equal(h.Date) && existing.ID != h.ID {
			return engine.ErrDuplicateHoliday
		}
	}
	v.parent.holidays[h.ID] = h
	return nil
}

func (v *txView) DeleteHoliday(_ context.Context, id string) error {
	delete(v.parent.holidays, id)
	return nil
}

func (v *txView) GetLeaveType(_ context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	lt, ok := v.parent.leaveTypes[id]
	if !ok {
		return nil, nil
	}
	copied := lt
	return &copied, nil
}

func (v *txView) ListLeaveTypes(_ context.Context, includeInactive bool) ([]engine.LeaveType, error) {
	var result []engine.LeaveType
	for _, lt := range v.parent.leaveTypes {
		if lt.Active || includeInactive {
			result = append(result, lt)
		}
	}
	return result, nil
}

func (v *txView) SaveLeaveType(_ context.Context, lt engine.LeaveType) error {
	v.parent.leaveTypes[lt.ID] = lt
	return nil
}

func (v *txView) GetUser(_ context.Context, id engine.UserID) (*engine.User, error) {
	u, ok := v.parent.users[id]
	if !ok {
		return nil, nil
	}
	copied := u
	return &copied, nil
}

func (v *txView) SaveUser(_ context.Context, u engine.User) error {
	v.parent.users[u.ID] = u
	return nil
}

func (v *txView) ListUsers(_ context.Context) ([]engine.User, error) {
	var result []engine.User
	for _, u := range v.parent.users {
		result = append(result, u)
	}
	return result, nil
}
