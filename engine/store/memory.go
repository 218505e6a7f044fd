// Package store provides the in-memory store implementation, used by
// tests and by the dev server when no database is configured.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of every store interface
// =============================================================================

// Memory implements engine.LeaveStore, engine.BalanceStore,
// engine.HolidayStore, engine.VisitStore, and engine.Directory.
// Reads return copies; callers never share slices with the store.
type Memory struct {
	mu       sync.RWMutex
	leaves   map[engine.LeaveID]engine.LeaveRecord
	balances map[engine.BalanceKey]engine.BalanceRow
	holidays map[string]engine.Holiday
	visits   map[string]engine.OfficeVisit
	users    map[engine.UserID]engine.User
	policies map[engine.PolicyID]engine.LeavePolicy
}

func NewMemory() *Memory {
	return &Memory{
		leaves:   make(map[engine.LeaveID]engine.LeaveRecord),
		balances: make(map[engine.BalanceKey]engine.BalanceRow),
		holidays: make(map[string]engine.Holiday),
		visits:   make(map[string]engine.OfficeVisit),
		users:    make(map[engine.UserID]engine.User),
		policies: make(map[engine.PolicyID]engine.LeavePolicy),
	}
}

// =============================================================================
// LEAVE STORE
// =============================================================================

func (m *Memory) CreateLeave(_ context.Context, rec engine.LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[rec.ID]; ok {
		return fmt.Errorf("leave %s already exists", rec.ID)
	}
	m.leaves[rec.ID] = rec
	return nil
}

func (m *Memory) SaveLeave(_ context.Context, rec engine.LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[rec.ID]; !ok {
		return fmt.Errorf("leave %s: %w", rec.ID, engine.ErrNotFound)
	}
	m.leaves[rec.ID] = rec
	return nil
}

func (m *Memory) DeleteLeave(_ context.Context, id engine.LeaveID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[id]; !ok {
		return fmt.Errorf("leave %s: %w", id, engine.ErrNotFound)
	}
	delete(m.leaves, id)
	return nil
}

func (m *Memory) GetLeave(_ context.Context, id engine.LeaveID) (engine.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.leaves[id]
	if !ok {
		return engine.LeaveRecord{}, fmt.Errorf("leave %s: %w", id, engine.ErrNotFound)
	}
	return rec, nil
}

func (m *Memory) FindLeavesByUser(_ context.Context, userID engine.UserID) ([]engine.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.LeaveRecord
	for _, rec := range m.leaves {
		if rec.UserID == userID {
			result = append(result, rec)
		}
	}
	sortLeaves(result)
	return result, nil
}

func (m *Memory) FindLeavesOverlapping(_ context.Context, userID engine.UserID, from, to engine.Date) ([]engine.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	window := engine.Span{Start: from, End: to}
	var result []engine.LeaveRecord
	for _, rec := range m.leaves {
		if userID != "" && rec.UserID != userID {
			continue
		}
		if rec.Span().Overlaps(window) {
			result = append(result, rec)
		}
	}
	sortLeaves(result)
	return result, nil
}

func sortLeaves(recs []engine.LeaveRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].StartDate.Equal(recs[j].StartDate) {
			return recs[i].StartDate.Before(recs[j].StartDate)
		}
		return recs[i].ID < recs[j].ID
	})
}

// =============================================================================
// BALANCE STORE
// =============================================================================

func (m *Memory) GetBalance(_ context.Context, key engine.BalanceKey) (engine.BalanceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.balances[key]
	if !ok {
		return engine.BalanceRow{}, fmt.Errorf("balance %s: %w", key, engine.ErrNotFound)
	}
	return row, nil
}

func (m *Memory) SaveBalance(_ context.Context, row engine.BalanceRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[row.Key()] = row
	return nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h engine.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) FindHolidays(_ context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	window := engine.Span{Start: from, End: to}
	var result []engine.Holiday
	for _, h := range m.holidays {
		if window.Contains(h.Date) {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// VISIT STORE
// =============================================================================

func (m *Memory) SaveVisit(_ context.Context, v engine.OfficeVisit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits[v.ID] = v
	return nil
}

func (m *Memory) FindVisits(_ context.Context, userID engine.UserID, from, to engine.Date) ([]engine.OfficeVisit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	window := engine.Span{Start: from, End: to}
	var result []engine.OfficeVisit
	for _, v := range m.visits {
		if userID != "" && v.UserID != userID {
			continue
		}
		if window.Contains(v.Date) {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) SaveUser(_ context.Context, u engine.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) SavePolicy(_ context.Context, p engine.LeavePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = p
	return nil
}

func (m *Memory) UserExists(_ context.Context, id engine.UserID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *Memory) PolicyExists(_ context.Context, id engine.PolicyID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.policies[id]
	return ok, nil
}

func (m *Memory) GetPolicy(_ context.Context, id engine.PolicyID) (engine.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return engine.LeavePolicy{}, fmt.Errorf("policy %s: %w", id, engine.ErrNotFound)
	}
	return p, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListPolicies(_ context.Context) ([]engine.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.LeavePolicy, 0, len(m.policies))
	for _, p := range m.policies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
