package leave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory StoreAPI used to exercise the service
// without a database. Ledger movements reuse the pure balance methods
// under a single mutex, which preserves the one-winner semantics of
// the conditional SQL.
type memStore struct {
	mu       sync.Mutex
	types    map[string]LeaveType
	policies []LeavePolicy
	holidays []Holiday
	balances map[string]*LeaveBalance
	requests map[string]*LeaveRequest
	events   []RequestEvent
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		types:    make(map[string]LeaveType),
		balances: make(map[string]*LeaveBalance),
		requests: make(map[string]*LeaveRequest),
	}
}

func balanceKey(employeeID, leaveTypeID string, year int) string {
	return fmt.Sprintf("%s/%s/%d", employeeID, leaveTypeID, year)
}

func (m *memStore) nextID() string {
	m.seq++
	return fmt.Sprintf("id-%d", m.seq)
}

func (m *memStore) CreateType(_ context.Context, lt LeaveType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lt.ID = m.nextID()
	m.types[lt.ID] = lt
	return lt.ID, nil
}

func (m *memStore) UpdateType(_ context.Context, lt LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[lt.ID] = lt
	return nil
}

func (m *memStore) TypeByID(_ context.Context, id string) (LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lt, ok := m.types[id]
	if !ok {
		return LeaveType{}, errors.New("leave type not found")
	}
	return lt, nil
}

func (m *memStore) ListTypes(_ context.Context) ([]LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LeaveType, 0, len(m.types))
	for _, lt := range m.types {
		out = append(out, lt)
	}
	return out, nil
}

func (m *memStore) CreatePolicy(_ context.Context, p LeavePolicy) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID()
	m.policies = append(m.policies, p)
	return p.ID, nil
}

func (m *memStore) ListPolicies(_ context.Context) ([]LeavePolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LeavePolicy(nil), m.policies...), nil
}

func (m *memStore) PolicyForType(_ context.Context, leaveTypeID, departmentID string, _ time.Time) (LeavePolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fallback *LeavePolicy
	for i := range m.policies {
		p := m.policies[i]
		if p.LeaveTypeID != leaveTypeID || !p.Active {
			continue
		}
		if p.DepartmentID == departmentID && departmentID != "" {
			return p, nil
		}
		if p.DepartmentID == "" && fallback == nil {
			fallback = &m.policies[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return LeavePolicy{}, errors.New("no active policy for leave type")
}

func (m *memStore) CreateHoliday(_ context.Context, h Holiday) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.nextID()
	m.holidays = append(m.holidays, h)
	return h.ID, nil
}

func (m *memStore) ListHolidays(_ context.Context) ([]Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Holiday(nil), m.holidays...), nil
}

func (m *memStore) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.holidays {
		if h.ID == id {
			m.holidays = append(m.holidays[:i], m.holidays[i+1:]...)
			return nil
		}
	}
	return errors.New("holiday not found")
}

func (m *memStore) Balance(_ context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey(employeeID, leaveTypeID, year)]
	if !ok {
		return LeaveBalance{}, ErrBalanceNotFound
	}
	return *b, nil
}

func (m *memStore) ListBalances(_ context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaveBalance
	for _, b := range m.balances {
		if b.EmployeeID == employeeID && (year == 0 || b.Year == year) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) withBalance(employeeID, leaveTypeID string, year int, fn func(*LeaveBalance) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey(employeeID, leaveTypeID, year)]
	if !ok {
		return ErrBalanceNotFound
	}
	return fn(b)
}

func (m *memStore) ReserveBalance(_ context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return m.withBalance(employeeID, leaveTypeID, year, func(b *LeaveBalance) error { return b.Reserve(days) })
}

func (m *memStore) CommitBalance(_ context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return m.withBalance(employeeID, leaveTypeID, year, func(b *LeaveBalance) error { return b.Commit(days) })
}

func (m *memStore) ReleaseBalance(_ context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return m.withBalance(employeeID, leaveTypeID, year, func(b *LeaveBalance) error { return b.Release(days) })
}

func (m *memStore) RefundBalance(_ context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return m.withBalance(employeeID, leaveTypeID, year, func(b *LeaveBalance) error { return b.Refund(days) })
}

func (m *memStore) EncashBalance(_ context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return m.withBalance(employeeID, leaveTypeID, year, func(b *LeaveBalance) error { return b.EncashDays(days) })
}

func (m *memStore) AdjustBalance(_ context.Context, employeeID, leaveTypeID string, year int, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey(employeeID, leaveTypeID, year)
	b, ok := m.balances[key]
	if !ok {
		b = &LeaveBalance{ID: m.nextID(), EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Year: year}
		m.balances[key] = b
	}
	b.Allocated += delta
	return nil
}

func (m *memStore) InitializeYear(_ context.Context, year int) (int, error) { return 0, nil }

func (m *memStore) CarryForwardYear(_ context.Context, fromYear int) (int, error) { return 0, nil }

func (m *memStore) InsertRequest(_ context.Context, req LeaveRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID()
	m.requests[req.ID] = &req
	return req.ID, nil
}

func (m *memStore) RequestByID(_ context.Context, id string) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return LeaveRequest{}, ErrRequestNotFound
	}
	return *req, nil
}

func (m *memStore) ListRequests(_ context.Context, employeeID, _ string, status string, _, _ int) ([]LeaveRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaveRequest
	for _, req := range m.requests {
		if employeeID != "" && req.EmployeeID != employeeID {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (m *memStore) MarkApproved(_ context.Context, requestID, approverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.Status != StatusPending {
		return false, nil
	}
	now := time.Now()
	req.Status = StatusApproved
	req.ApproverID = approverID
	req.DecidedAt = &now
	return true, nil
}

func (m *memStore) MarkRejected(_ context.Context, requestID, approverID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.Status != StatusPending {
		return false, nil
	}
	now := time.Now()
	req.Status = StatusRejected
	req.ApproverID = approverID
	req.DecidedAt = &now
	req.RejectionReason = reason
	return true, nil
}

func (m *memStore) MarkClosed(_ context.Context, requestID, fromStatus, toStatus string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.Status != fromStatus {
		return false, nil
	}
	req.Status = toStatus
	return true, nil
}

func (m *memStore) InsertRequestEvent(_ context.Context, ev RequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = m.nextID()
	ev.CreatedAt = time.Now()
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) ListRequestEvents(_ context.Context, requestID string) ([]RequestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RequestEvent
	for _, ev := range m.events {
		if ev.RequestID == requestID {
			out = append(out, ev)
		}
	}
	return out, nil
}

var _ StoreAPI = (*memStore)(nil)
