package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const recordColumns = `id, employee_id, work_date, check_in, check_out,
	break_minutes, total_hours, status, COALESCE(note, ''), updated_at`

func scanRecord(row pgx.Row) (AttendanceRecord, error) {
	var rec AttendanceRecord
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.WorkDate, &rec.CheckIn, &rec.CheckOut,
		&rec.BreakMinutes, &rec.TotalHours, &rec.Status, &rec.Note, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AttendanceRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return AttendanceRecord{}, fmt.Errorf("scan attendance record: %w", err)
	}
	return rec, nil
}

// InsertCheckIn claims the day's row for the employee. The conflict
// target is the unique (employee_id, work_date) index, and the update
// arm only fires while check_in is still null, so the first stamp wins
// under concurrency.
func (s *Store) InsertCheckIn(ctx context.Context, employeeID string, workDate, checkIn time.Time, status string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO attendance_records (employee_id, work_date, check_in, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, work_date) DO UPDATE
		SET check_in = EXCLUDED.check_in, status = EXCLUDED.status, updated_at = now()
		WHERE attendance_records.check_in IS NULL`,
		employeeID, workDate, checkIn, status)
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetCheckOut stamps the checkout and recomputes worked hours in the
// same statement. Repeated calls overwrite; the most recent stamp wins.
func (s *Store) SetCheckOut(ctx context.Context, employeeID string, workDate, checkOut time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE attendance_records
		SET check_out = $3,
		    total_hours = GREATEST(0, EXTRACT(EPOCH FROM ($3::timestamptz - check_in)) / 3600.0 - break_minutes / 60.0),
		    updated_at = now()
		WHERE employee_id = $1 AND work_date = $2 AND check_in IS NOT NULL`,
		employeeID, workDate, checkOut)
	if err != nil {
		return false, fmt.Errorf("set check-out: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Upsert is the admin override path. It replaces the day's row wholesale
// and never creates a duplicate for the (employee, date) pair.
func (s *Store) Upsert(ctx context.Context, rec AttendanceRecord) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
		INSERT INTO attendance_records
			(employee_id, work_date, check_in, check_out, break_minutes, total_hours, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		ON CONFLICT (employee_id, work_date) DO UPDATE
		SET check_in = EXCLUDED.check_in,
		    check_out = EXCLUDED.check_out,
		    break_minutes = EXCLUDED.break_minutes,
		    total_hours = EXCLUDED.total_hours,
		    status = EXCLUDED.status,
		    note = EXCLUDED.note,
		    updated_at = now()
		RETURNING id`,
		rec.EmployeeID, rec.WorkDate, rec.CheckIn, rec.CheckOut,
		rec.BreakMinutes, rec.TotalHours, rec.Status, rec.Note).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert attendance record: %w", err)
	}
	return id, nil
}

func (s *Store) RecordFor(ctx context.Context, employeeID string, workDate time.Time) (AttendanceRecord, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE employee_id = $1 AND work_date = $2`,
		employeeID, workDate)
	return scanRecord(row)
}

func (s *Store) List(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]AttendanceRecord, int, error) {
	var (
		clauses []string
		args    []any
	)
	appendFilter := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if employeeID != "" {
		appendFilter("employee_id = $%d", employeeID)
	}
	if !from.IsZero() {
		appendFilter("work_date >= $%d", from)
	}
	if !to.IsZero() {
		appendFilter("work_date <= $%d", to)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records`+where+`
		ORDER BY work_date DESC, employee_id
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var out []AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *Store) MonthlySummary(ctx context.Context, employeeID string, year int, month time.Month) (DaySummary, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	var (
		sum    DaySummary
		worked int
		total  *float64
	)
	err := s.DB.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'late'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'half_day'),
			COUNT(*) FILTER (WHERE status = 'leave'),
			COUNT(*) FILTER (WHERE total_hours IS NOT NULL),
			SUM(total_hours)
		FROM attendance_records
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3`,
		employeeID, from, to).Scan(&sum.PresentDays, &sum.LateDays, &sum.AbsentDays,
		&sum.HalfDays, &sum.LeaveDays, &worked, &total)
	if err != nil {
		return DaySummary{}, fmt.Errorf("attendance monthly summary: %w", err)
	}
	sum.EmployeeID = employeeID
	if total != nil {
		sum.TotalHours = *total
	}
	if worked > 0 {
		sum.AverageHours = sum.TotalHours / float64(worked)
	}
	return sum, nil
}
