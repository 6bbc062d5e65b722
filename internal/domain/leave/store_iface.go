package leave

import (
	"context"
	"time"
)

// StoreAPI is what the service needs from persistence. The Postgres
// Store implements it; tests substitute an in-memory fake.
type StoreAPI interface {
	// Leave types and policies.
	CreateType(ctx context.Context, lt LeaveType) (string, error)
	UpdateType(ctx context.Context, lt LeaveType) error
	TypeByID(ctx context.Context, leaveTypeID string) (LeaveType, error)
	ListTypes(ctx context.Context) ([]LeaveType, error)
	CreatePolicy(ctx context.Context, p LeavePolicy) (string, error)
	ListPolicies(ctx context.Context) ([]LeavePolicy, error)
	PolicyForType(ctx context.Context, leaveTypeID, departmentID string, asOf time.Time) (LeavePolicy, error)

	// Holiday calendar.
	CreateHoliday(ctx context.Context, h Holiday) (string, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	DeleteHoliday(ctx context.Context, holidayID string) error

	// Balance ledger. Each call is a single atomic conditional mutation
	// of one (employee, leaveType, year) row.
	Balance(ctx context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error)
	ReserveBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
	CommitBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
	ReleaseBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
	RefundBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
	EncashBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
	AdjustBalance(ctx context.Context, employeeID, leaveTypeID string, year int, delta float64) error
	InitializeYear(ctx context.Context, year int) (int, error)
	CarryForwardYear(ctx context.Context, fromYear int) (int, error)

	// Requests and their transition history.
	InsertRequest(ctx context.Context, req LeaveRequest) (string, error)
	RequestByID(ctx context.Context, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, employeeID, managerEmployeeID, status string, limit, offset int) ([]LeaveRequest, int, error)
	MarkApproved(ctx context.Context, requestID, approverID string) (bool, error)
	MarkRejected(ctx context.Context, requestID, approverID, reason string) (bool, error)
	MarkClosed(ctx context.Context, requestID, fromStatus, toStatus string) (bool, error)
	InsertRequestEvent(ctx context.Context, ev RequestEvent) error
	ListRequestEvents(ctx context.Context, requestID string) ([]RequestEvent, error)
}
