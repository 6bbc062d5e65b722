package reports

import (
	"context"
	"fmt"
	"time"

	"hcm/internal/domain/leave"
	"hcm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) BalanceSummary(ctx context.Context, year int, employeeID string) ([]BalanceRow, error) {
	query := `
		SELECT b.employee_id, e.employee_number, e.first_name || ' ' || e.last_name,
		       t.name, t.code, b.year,
		       b.allocated, b.carried_forward, b.used, b.pending, b.encashed
		FROM leave_balances b
		JOIN employees e ON e.id = b.employee_id
		JOIN leave_types t ON t.id = b.leave_type_id
		WHERE b.year = $1`
	args := []any{year}
	if employeeID != "" {
		args = append(args, employeeID)
		query += fmt.Sprintf(" AND b.employee_id = $%d", len(args))
	}
	query += " ORDER BY e.employee_number, t.code"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("balance summary: %w", err)
	}
	defer rows.Close()

	var out []BalanceRow
	for rows.Next() {
		var r BalanceRow
		if err := rows.Scan(&r.EmployeeID, &r.EmployeeNumber, &r.EmployeeName,
			&r.LeaveType, &r.LeaveTypeCode, &r.Year,
			&r.Allocated, &r.CarriedForward, &r.Used, &r.Pending, &r.Encashed); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		r.Remaining = r.Allocated + r.CarriedForward - r.Used - r.Pending - r.Encashed
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MonthlyAttendance(ctx context.Context, year int, month time.Month) ([]AttendanceRow, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	rows, err := s.DB.Query(ctx, `
		SELECT a.employee_id, e.employee_number, e.first_name || ' ' || e.last_name,
		       COUNT(*) FILTER (WHERE a.status = 'present'),
		       COUNT(*) FILTER (WHERE a.status = 'late'),
		       COUNT(*) FILTER (WHERE a.status = 'absent'),
		       COUNT(*) FILTER (WHERE a.status = 'half_day'),
		       COUNT(*) FILTER (WHERE a.status = 'leave'),
		       COALESCE(SUM(a.total_hours), 0)
		FROM attendance_records a
		JOIN employees e ON e.id = a.employee_id
		WHERE a.work_date BETWEEN $1 AND $2
		GROUP BY a.employee_id, e.employee_number, e.first_name, e.last_name
		ORDER BY e.employee_number`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly attendance: %w", err)
	}
	defer rows.Close()

	var out []AttendanceRow
	for rows.Next() {
		var r AttendanceRow
		if err := rows.Scan(&r.EmployeeID, &r.EmployeeNumber, &r.EmployeeName,
			&r.PresentDays, &r.LateDays, &r.AbsentDays, &r.HalfDays, &r.LeaveDays, &r.TotalHours); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Overview feeds the dashboard counters.
func (s *Store) Overview(ctx context.Context) (map[string]any, error) {
	var activeEmployees, pendingRequests, onLeaveToday int
	if err := s.DB.QueryRow(ctx,
		`SELECT COUNT(1) FROM employees WHERE status = 'active'`).Scan(&activeEmployees); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRow(ctx,
		`SELECT COUNT(1) FROM leave_requests WHERE status = $1`, leave.StatusPending).Scan(&pendingRequests); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRow(ctx, `
		SELECT COUNT(1) FROM leave_requests
		WHERE status = $1 AND CURRENT_DATE BETWEEN start_date AND end_date`,
		leave.StatusApproved).Scan(&onLeaveToday); err != nil {
		return nil, err
	}
	return map[string]any{
		"activeEmployees": activeEmployees,
		"pendingRequests": pendingRequests,
		"onLeaveToday":    onLeaveToday,
	}, nil
}
