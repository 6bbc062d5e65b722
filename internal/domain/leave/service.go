package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hcm/internal/domain/auth"
	"hcm/internal/domain/core"
)

// Directory is the employee-directory collaborator: tenure, gender and
// reporting-line lookups.
type Directory interface {
	EmployeeByID(ctx context.Context, employeeID string) (core.Employee, error)
	EmployeeIDByUserID(ctx context.Context, userID string) (string, error)
	IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error)
}

type Service struct {
	Store StoreAPI
	Dir   Directory

	// Now is the injected clock; tests pin it to fixed instants.
	Now func() time.Time
}

func NewService(store StoreAPI, dir Directory) *Service {
	return &Service{Store: store, Dir: dir, Now: time.Now}
}

type CreateRequestInput struct {
	EmployeeID         string
	LeaveTypeID        string
	StartDate          time.Time
	EndDate            time.Time
	Reason             string
	Emergency          bool
	HandoverNotes      string
	ContactDuringLeave string
	ActorID            string
}

// CreateRequest validates the range, runs the policy gates, computes
// the chargeable day count, reserves it on the ledger and persists the
// request as pending. totalDays is fixed here and never recomputed.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (LeaveRequest, error) {
	now := s.Now()

	if dateOnly(in.EndDate).Before(dateOnly(in.StartDate)) {
		return LeaveRequest{}, ErrInvalidRange
	}

	emp, err := s.Dir.EmployeeByID(ctx, in.EmployeeID)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("employee lookup: %w", err)
	}
	lt, err := s.Store.TypeByID(ctx, in.LeaveTypeID)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("leave type lookup: %w", err)
	}
	pol, err := s.Store.PolicyForType(ctx, lt.ID, emp.DepartmentID, now)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("policy lookup: %w", err)
	}

	holidays, err := s.holidaysFor(ctx, emp.Gender)
	if err != nil {
		return LeaveRequest{}, err
	}

	totalDays, err := CountDays(in.StartDate, in.EndDate, pol.DayCountRules(), holidays)
	if err != nil {
		return LeaveRequest{}, err
	}

	if err := CheckEligibility(emp, lt, pol, totalDays, in.StartDate, now); err != nil {
		return LeaveRequest{}, err
	}

	year := in.StartDate.Year()
	if err := s.Store.ReserveBalance(ctx, emp.ID, lt.ID, year, float64(totalDays)); err != nil {
		return LeaveRequest{}, err
	}

	req := LeaveRequest{
		EmployeeID:         emp.ID,
		LeaveTypeID:        lt.ID,
		StartDate:          dateOnly(in.StartDate),
		EndDate:            dateOnly(in.EndDate),
		TotalDays:          totalDays,
		Reason:             in.Reason,
		Status:             StatusPending,
		Emergency:          in.Emergency,
		HandoverNotes:      in.HandoverNotes,
		ContactDuringLeave: in.ContactDuringLeave,
		AppliedAt:          now,
	}
	id, err := s.Store.InsertRequest(ctx, req)
	if err != nil {
		// Undo the reservation so a failed insert leaves no partial state.
		if relErr := s.Store.ReleaseBalance(ctx, emp.ID, lt.ID, year, float64(totalDays)); relErr != nil {
			slog.Error("orphaned reservation after failed request insert",
				"employeeId", emp.ID, "leaveTypeId", lt.ID, "year", year, "err", relErr)
		}
		return LeaveRequest{}, err
	}
	req.ID = id

	s.recordEvent(ctx, RequestEvent{RequestID: id, ToStatus: StatusPending, ActorID: in.ActorID})
	return req, nil
}

// PreviewDays recomputes the chargeable day count for a prospective
// request without touching any state.
func (s *Service) PreviewDays(ctx context.Context, employeeID, leaveTypeID string, start, end time.Time) (int, error) {
	emp, err := s.Dir.EmployeeByID(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	pol, err := s.Store.PolicyForType(ctx, leaveTypeID, emp.DepartmentID, s.Now())
	if err != nil {
		return 0, err
	}
	holidays, err := s.holidaysFor(ctx, emp.Gender)
	if err != nil {
		return 0, err
	}
	return CountDays(start, end, pol.DayCountRules(), holidays)
}

// Approve commits the pending reservation. The conditional status flip
// claims the request row first, so a racing cancellation and approval
// cannot both act on the same reservation.
func (s *Service) Approve(ctx context.Context, requestID, actorUserID, roleName string) (LeaveRequest, error) {
	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	if err := s.authorizeDecision(ctx, req, actorUserID, roleName); err != nil {
		return LeaveRequest{}, err
	}

	claimed, err := s.Store.MarkApproved(ctx, req.ID, actorUserID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !claimed {
		return LeaveRequest{}, ErrInvalidTransition
	}

	if err := s.Store.CommitBalance(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate.Year(), float64(req.TotalDays)); err != nil {
		slog.Error("leave ledger commit failed", "requestId", req.ID, "err", err)
		return LeaveRequest{}, err
	}

	s.recordEvent(ctx, RequestEvent{RequestID: req.ID, FromStatus: StatusPending, ToStatus: StatusApproved, ActorID: actorUserID})
	return s.Store.RequestByID(ctx, requestID)
}

// Reject releases the reservation. The reason is mandatory and shown to
// the employee verbatim.
func (s *Service) Reject(ctx context.Context, requestID, actorUserID, roleName, reason string) (LeaveRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return LeaveRequest{}, ErrReasonRequired
	}

	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	if err := s.authorizeDecision(ctx, req, actorUserID, roleName); err != nil {
		return LeaveRequest{}, err
	}

	claimed, err := s.Store.MarkRejected(ctx, req.ID, actorUserID, reason)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !claimed {
		return LeaveRequest{}, ErrInvalidTransition
	}

	if err := s.Store.ReleaseBalance(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate.Year(), float64(req.TotalDays)); err != nil {
		slog.Error("leave ledger release failed", "requestId", req.ID, "err", err)
		return LeaveRequest{}, err
	}

	s.recordEvent(ctx, RequestEvent{RequestID: req.ID, FromStatus: StatusPending, ToStatus: StatusRejected, ActorID: actorUserID, Note: reason})
	return s.Store.RequestByID(ctx, requestID)
}

// Cancel is the administrative path: a manager or HR closes a pending
// or approved request. Pending reservations are released; approved days
// are refunded out of used.
func (s *Service) Cancel(ctx context.Context, requestID, actorUserID, roleName string) (LeaveRequest, error) {
	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	if err := s.authorizeDecision(ctx, req, actorUserID, roleName); err != nil {
		return LeaveRequest{}, err
	}

	return s.close(ctx, req, StatusCancelled, actorUserID)
}

// Withdraw is the self-service path: the employee pulls back their own
// request. Ledger effect matches Cancel; the distinct status keeps the
// audit trail honest about who initiated it.
func (s *Service) Withdraw(ctx context.Context, requestID, actorUserID string) (LeaveRequest, error) {
	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	selfEmployeeID, err := s.Dir.EmployeeIDByUserID(ctx, actorUserID)
	if err != nil || selfEmployeeID != req.EmployeeID {
		return LeaveRequest{}, ErrForbidden
	}

	return s.close(ctx, req, StatusWithdrawn, actorUserID)
}

func (s *Service) close(ctx context.Context, req LeaveRequest, toStatus, actorID string) (LeaveRequest, error) {
	if terminal(req.Status) {
		return LeaveRequest{}, ErrInvalidTransition
	}

	fromStatus := req.Status
	claimed, err := s.Store.MarkClosed(ctx, req.ID, fromStatus, toStatus)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !claimed {
		return LeaveRequest{}, ErrInvalidTransition
	}

	year := req.StartDate.Year()
	days := float64(req.TotalDays)
	switch fromStatus {
	case StatusPending:
		err = s.Store.ReleaseBalance(ctx, req.EmployeeID, req.LeaveTypeID, year, days)
	case StatusApproved:
		err = s.Store.RefundBalance(ctx, req.EmployeeID, req.LeaveTypeID, year, days)
	}
	if err != nil {
		slog.Error("leave ledger close failed", "requestId", req.ID, "from", fromStatus, "err", err)
		return LeaveRequest{}, err
	}

	s.recordEvent(ctx, RequestEvent{RequestID: req.ID, FromStatus: fromStatus, ToStatus: toStatus, ActorID: actorID})
	return s.Store.RequestByID(ctx, req.ID)
}

func (s *Service) authorizeDecision(ctx context.Context, req LeaveRequest, actorUserID, roleName string) error {
	if roleName == auth.RoleHR {
		return nil
	}
	if roleName != auth.RoleManager {
		return ErrForbidden
	}
	actorEmployeeID, err := s.Dir.EmployeeIDByUserID(ctx, actorUserID)
	if err != nil {
		return ErrForbidden
	}
	manages, err := s.Dir.IsManagerOf(ctx, actorEmployeeID, req.EmployeeID)
	if err != nil {
		return err
	}
	if !manages {
		return ErrForbidden
	}
	return nil
}

func (s *Service) recordEvent(ctx context.Context, ev RequestEvent) {
	if err := s.Store.InsertRequestEvent(ctx, ev); err != nil {
		slog.Warn("leave request event insert failed", "requestId", ev.RequestID, "to", ev.ToStatus, "err", err)
	}
}

func (s *Service) holidaysFor(ctx context.Context, gender string) ([]Holiday, error) {
	all, err := s.Store.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	applicable := make([]Holiday, 0, len(all))
	for _, h := range all {
		if h.AppliesTo(gender) {
			applicable = append(applicable, h)
		}
	}
	return applicable, nil
}

// InitializeYear creates the year's balance rows in bulk, idempotently.
func (s *Service) InitializeYear(ctx context.Context, year int) (int, error) {
	return s.Store.InitializeYear(ctx, year)
}

// CarryForward rolls the given year's unused allocation into the next.
func (s *Service) CarryForward(ctx context.Context, fromYear int) (int, error) {
	return s.Store.CarryForwardYear(ctx, fromYear)
}

// Encash converts remaining days to payout for types that allow it.
func (s *Service) Encash(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	lt, err := s.Store.TypeByID(ctx, leaveTypeID)
	if err != nil {
		return err
	}
	if !lt.EncashmentAllowed {
		return ErrEncashmentNotAllowed
	}
	return s.Store.EncashBalance(ctx, employeeID, leaveTypeID, year, days)
}

func (s *Service) BalanceFor(ctx context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error) {
	return s.Store.Balance(ctx, employeeID, leaveTypeID, year)
}

func (s *Service) ListBalances(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	return s.Store.ListBalances(ctx, employeeID, year)
}

func (s *Service) RequestByID(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.RequestByID(ctx, requestID)
}

func (s *Service) ListRequests(ctx context.Context, employeeID, managerEmployeeID, status string, limit, offset int) ([]LeaveRequest, int, error) {
	return s.Store.ListRequests(ctx, employeeID, managerEmployeeID, status, limit, offset)
}

func (s *Service) History(ctx context.Context, requestID string) ([]RequestEvent, error) {
	return s.Store.ListRequestEvents(ctx, requestID)
}
