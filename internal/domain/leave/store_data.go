package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateType(ctx context.Context, lt LeaveType) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types
      (name, code, annual_allocation, max_consecutive_days, carry_forward_allowed,
       carry_forward_cap, encashment_allowed, requires_doc, eligibility_months,
       applicable_gender, color)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `, lt.Name, lt.Code, lt.AnnualAllocation, lt.MaxConsecutiveDays, lt.CarryForwardAllowed,
		lt.CarryForwardCap, lt.EncashmentAllowed, lt.RequiresDoc, lt.EligibilityMonths,
		lt.ApplicableGender, lt.Color).Scan(&id)
	return id, err
}

// UpdateType edits the type going forward; historical balance rows are
// never rewritten.
func (s *Store) UpdateType(ctx context.Context, lt LeaveType) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE leave_types
    SET name = $2, annual_allocation = $3, max_consecutive_days = $4,
        carry_forward_allowed = $5, carry_forward_cap = $6, encashment_allowed = $7,
        requires_doc = $8, eligibility_months = $9, applicable_gender = $10, color = $11
    WHERE id = $1
  `, lt.ID, lt.Name, lt.AnnualAllocation, lt.MaxConsecutiveDays,
		lt.CarryForwardAllowed, lt.CarryForwardCap, lt.EncashmentAllowed,
		lt.RequiresDoc, lt.EligibilityMonths, lt.ApplicableGender, lt.Color)
	return err
}

const leaveTypeColumns = `
  id, name, code, annual_allocation, max_consecutive_days, carry_forward_allowed,
  carry_forward_cap, encashment_allowed, requires_doc, eligibility_months,
  applicable_gender, COALESCE(color, ''), created_at
`

func scanType(row interface{ Scan(dest ...any) error }) (LeaveType, error) {
	var lt LeaveType
	err := row.Scan(&lt.ID, &lt.Name, &lt.Code, &lt.AnnualAllocation, &lt.MaxConsecutiveDays,
		&lt.CarryForwardAllowed, &lt.CarryForwardCap, &lt.EncashmentAllowed, &lt.RequiresDoc,
		&lt.EligibilityMonths, &lt.ApplicableGender, &lt.Color, &lt.CreatedAt)
	return lt, err
}

func (s *Store) TypeByID(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types WHERE id = $1", leaveTypeID)
	return scanType(row)
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		lt, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (s *Store) CreatePolicy(ctx context.Context, p LeavePolicy) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies
      (leave_type_id, department_id, accrual_period, accrual_anchor, count_weekends,
       count_holidays, sandwich_leave, advance_leave_allowed, max_advance_days,
       probation_months, effective_from, effective_to, active)
    VALUES ($1, NULLIF($2,'')::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    RETURNING id
  `, p.LeaveTypeID, p.DepartmentID, p.AccrualPeriod, p.AccrualAnchor, p.CountWeekends,
		p.CountHolidays, p.SandwichLeave, p.AdvanceLeaveAllowed, p.MaxAdvanceDays,
		p.ProbationMonths, p.EffectiveFrom, p.EffectiveTo, p.Active).Scan(&id)
	return id, err
}

const leavePolicyColumns = `
  id, leave_type_id, COALESCE(department_id::text, ''), accrual_period, accrual_anchor,
  count_weekends, count_holidays, sandwich_leave, advance_leave_allowed,
  max_advance_days, probation_months, effective_from, effective_to, active
`

func scanPolicy(row interface{ Scan(dest ...any) error }) (LeavePolicy, error) {
	var p LeavePolicy
	err := row.Scan(&p.ID, &p.LeaveTypeID, &p.DepartmentID, &p.AccrualPeriod, &p.AccrualAnchor,
		&p.CountWeekends, &p.CountHolidays, &p.SandwichLeave, &p.AdvanceLeaveAllowed,
		&p.MaxAdvanceDays, &p.ProbationMonths, &p.EffectiveFrom, &p.EffectiveTo, &p.Active)
	return p, err
}

func (s *Store) ListPolicies(ctx context.Context) ([]LeavePolicy, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+leavePolicyColumns+" FROM leave_policies ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// PolicyForType resolves the active policy for a leave type, preferring
// a department-scoped policy over the company-wide one.
func (s *Store) PolicyForType(ctx context.Context, leaveTypeID, departmentID string, asOf time.Time) (LeavePolicy, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+leavePolicyColumns+`
    FROM leave_policies
    WHERE leave_type_id = $1
      AND active
      AND (department_id IS NULL OR department_id::text = $2)
      AND (effective_from IS NULL OR effective_from <= $3)
      AND (effective_to IS NULL OR effective_to >= $3)
    ORDER BY department_id NULLS LAST
    LIMIT 1
  `, leaveTypeID, departmentID, asOf)
	return scanPolicy(row)
}

func (s *Store) CreateHoliday(ctx context.Context, h Holiday) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (name, holiday_date, recurring, holiday_type, applicable_gender)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, h.Name, h.Date, h.Recurring, h.Type, h.ApplicableGender).Scan(&id)
	return id, err
}

func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, holiday_date, recurring, holiday_type, applicable_gender
    FROM holidays
    ORDER BY holiday_date
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Recurring, &h.Type, &h.ApplicableGender); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) DeleteHoliday(ctx context.Context, holidayID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", holidayID)
	return err
}

const balanceColumns = `
  id, employee_id, leave_type_id, year, allocated, carried_forward, used, pending, encashed, updated_at
`

func scanBalance(row interface{ Scan(dest ...any) error }) (LeaveBalance, error) {
	var b LeaveBalance
	err := row.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &b.Allocated,
		&b.CarriedForward, &b.Used, &b.Pending, &b.Encashed, &b.UpdatedAt)
	return b, err
}

func (s *Store) Balance(ctx context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
  `, employeeID, leaveTypeID, year)
	b, err := scanBalance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveBalance{}, ErrBalanceNotFound
	}
	return b, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
    ORDER BY leave_type_id
  `, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// ReserveBalance increments pending only when the server-side remaining
// stays non-negative. Two racing reservations cannot both pass the
// guard: each UPDATE re-evaluates remaining against the committed row.
func (s *Store) ReserveBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET pending = pending + $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
      AND allocated + carried_forward - used - pending - encashed >= $4
  `, employeeID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	balance, err := s.Balance(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}
	return &InsufficientBalanceError{Available: balance.Remaining(), Requested: days}
}

// CommitBalance moves days from pending to used on approval. A zero-row
// result means the reservation this commit pairs with is gone, which is
// a state machine bug, not a user error.
func (s *Store) CommitBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET pending = pending - $4, used = used + $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3 AND pending >= $4
  `, employeeID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commit %g days for employee %s type %s year %d: %w",
			days, employeeID, leaveTypeID, year, ErrLedgerInvariant)
	}
	return nil
}

func (s *Store) ReleaseBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET pending = pending - $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3 AND pending >= $4
  `, employeeID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("release %g days for employee %s type %s year %d: %w",
			days, employeeID, leaveTypeID, year, ErrLedgerInvariant)
	}
	return nil
}

func (s *Store) RefundBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET used = used - $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3 AND used >= $4
  `, employeeID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("refund %g days for employee %s type %s year %d: %w",
			days, employeeID, leaveTypeID, year, ErrLedgerInvariant)
	}
	return nil
}

func (s *Store) EncashBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET encashed = encashed + $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
      AND allocated + carried_forward - used - pending - encashed >= $4
  `, employeeID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	balance, err := s.Balance(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}
	return &InsufficientBalanceError{Available: balance.Remaining(), Requested: days}
}

func (s *Store) AdjustBalance(ctx context.Context, employeeID, leaveTypeID string, year int, delta float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated, carried_forward, used, pending, encashed)
    VALUES ($1, $2, $3, $4, 0, 0, 0, 0)
    ON CONFLICT (employee_id, leave_type_id, year)
    DO UPDATE SET allocated = leave_balances.allocated + EXCLUDED.allocated, updated_at = now()
  `, employeeID, leaveTypeID, year, delta)
	return err
}

// InitializeYear creates one balance row per active employee and leave
// type with the annual allocation. Idempotent: existing rows are left
// untouched and only newly created rows are counted.
func (s *Store) InitializeYear(ctx context.Context, year int) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated, carried_forward, used, pending, encashed)
    SELECT e.id, lt.id, $1, lt.annual_allocation, 0, 0, 0, 0
    FROM employees e
    CROSS JOIN leave_types lt
    WHERE e.status = 'active'
    ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
  `, year)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// CarryForwardYear rolls unused allocation into the next year, capped
// per leave type; the excess is forfeited. Re-running recomputes the
// carried amount rather than stacking it.
func (s *Store) CarryForwardYear(ctx context.Context, fromYear int) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated, carried_forward, used, pending, encashed)
    SELECT b.employee_id, b.leave_type_id, $1 + 1, 0,
           LEAST(GREATEST(b.allocated + b.carried_forward - b.used - b.pending - b.encashed, 0), lt.carry_forward_cap),
           0, 0, 0
    FROM leave_balances b
    JOIN leave_types lt ON lt.id = b.leave_type_id
    WHERE b.year = $1 AND lt.carry_forward_allowed
    ON CONFLICT (employee_id, leave_type_id, year)
    DO UPDATE SET carried_forward = EXCLUDED.carried_forward, updated_at = now()
  `, fromYear)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) InsertRequest(ctx context.Context, req LeaveRequest) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests
      (employee_id, leave_type_id, start_date, end_date, total_days, reason, status,
       emergency, handover_notes, contact_during_leave, applied_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.TotalDays, req.Reason,
		req.Status, req.Emergency, req.HandoverNotes, req.ContactDuringLeave, req.AppliedAt).Scan(&id)
	return id, err
}

const requestColumns = `
  id, employee_id, leave_type_id, start_date, end_date, total_days, reason, status,
  emergency, COALESCE(handover_notes, ''), COALESCE(contact_during_leave, ''),
  applied_at, COALESCE(approver_id::text, ''), decided_at, COALESCE(rejection_reason, '')
`

func scanRequest(row interface{ Scan(dest ...any) error }) (LeaveRequest, error) {
	var r LeaveRequest
	err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &r.StartDate, &r.EndDate,
		&r.TotalDays, &r.Reason, &r.Status, &r.Emergency, &r.HandoverNotes,
		&r.ContactDuringLeave, &r.AppliedAt, &r.ApproverID, &r.DecidedAt, &r.RejectionReason)
	return r, err
}

func (s *Store) RequestByID(ctx context.Context, requestID string) (LeaveRequest, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = $1", requestID)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrRequestNotFound
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, employeeID, managerEmployeeID, status string, limit, offset int) ([]LeaveRequest, int, error) {
	query := "SELECT " + requestColumns + " FROM leave_requests WHERE 1=1"
	countQuery := "SELECT COUNT(1) FROM leave_requests WHERE 1=1"
	var args []any

	appendFilter := func(clause string, value any) {
		args = append(args, value)
		suffix := fmt.Sprintf(clause, len(args))
		query += suffix
		countQuery += suffix
	}

	if employeeID != "" {
		appendFilter(" AND employee_id = $%d", employeeID)
	}
	if managerEmployeeID != "" {
		appendFilter(" AND employee_id IN (SELECT id FROM employees WHERE manager_id = $%d)", managerEmployeeID)
	}
	if status != "" {
		appendFilter(" AND status = $%d", status)
	}

	var total int
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY applied_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

// MarkApproved flips pending to approved, claiming the request for this
// approver. A zero-row result means another transition got there first.
func (s *Store) MarkApproved(ctx context.Context, requestID, approverID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = $3, decided_at = now()
    WHERE id = $1 AND status = $4
  `, requestID, StatusApproved, approverID, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkRejected(ctx context.Context, requestID, approverID, reason string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = $3, decided_at = now(), rejection_reason = $4
    WHERE id = $1 AND status = $5
  `, requestID, StatusRejected, approverID, reason, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkClosed handles cancel/withdraw, which keep the original approval
// metadata intact and only flip the status.
func (s *Store) MarkClosed(ctx context.Context, requestID, fromStatus, toStatus string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $3
    WHERE id = $1 AND status = $2
  `, requestID, fromStatus, toStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) InsertRequestEvent(ctx context.Context, ev RequestEvent) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_request_events (request_id, from_status, to_status, actor_id, note)
    VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''))
  `, ev.RequestID, ev.FromStatus, ev.ToStatus, ev.ActorID, ev.Note)
	return err
}

func (s *Store) ListRequestEvents(ctx context.Context, requestID string) ([]RequestEvent, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, request_id, COALESCE(from_status, ''), to_status, actor_id, COALESCE(note, ''), created_at
    FROM leave_request_events
    WHERE request_id = $1
    ORDER BY created_at
  `, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RequestEvent
	for rows.Next() {
		var ev RequestEvent
		if err := rows.Scan(&ev.ID, &ev.RequestID, &ev.FromStatus, &ev.ToStatus, &ev.ActorID, &ev.Note, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
