package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) BalanceSummary(ctx context.Context, year int, employeeID string) ([]BalanceRow, error) {
	return s.Store.BalanceSummary(ctx, year, employeeID)
}

func (s *Service) MonthlyAttendance(ctx context.Context, year int, month time.Month) ([]AttendanceRow, error) {
	return s.Store.MonthlyAttendance(ctx, year, month)
}

func (s *Service) Overview(ctx context.Context) (map[string]any, error) {
	return s.Store.Overview(ctx)
}

func BalanceSummaryCSV(rows []BalanceRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"employeeNumber", "employeeName", "leaveType", "year",
		"allocated", "carriedForward", "used", "pending", "encashed", "remaining"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.EmployeeNumber, r.EmployeeName, r.LeaveTypeCode, strconv.Itoa(r.Year),
			formatDays(r.Allocated), formatDays(r.CarriedForward), formatDays(r.Used),
			formatDays(r.Pending), formatDays(r.Encashed), formatDays(r.Remaining),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func MonthlyAttendanceCSV(rows []AttendanceRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"employeeNumber", "employeeName", "present", "late", "absent", "halfDay", "leave", "totalHours"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.EmployeeNumber, r.EmployeeName,
			strconv.Itoa(r.PresentDays), strconv.Itoa(r.LateDays), strconv.Itoa(r.AbsentDays),
			strconv.Itoa(r.HalfDays), strconv.Itoa(r.LeaveDays),
			strconv.FormatFloat(r.TotalHours, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// MonthlyAttendancePDF renders the summary as a simple one-table PDF.
func MonthlyAttendancePDF(rows []AttendanceRow, year int, month time.Month) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Attendance Summary %s %d", month, year))
	pdf.Ln(14)

	widths := []float64{30, 70, 22, 22, 22, 22, 22, 28}
	headers := []string{"Emp #", "Name", "Present", "Late", "Absent", "Half", "Leave", "Hours"}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range rows {
		cells := []string{
			r.EmployeeNumber, r.EmployeeName,
			strconv.Itoa(r.PresentDays), strconv.Itoa(r.LateDays), strconv.Itoa(r.AbsentDays),
			strconv.Itoa(r.HalfDays), strconv.Itoa(r.LeaveDays),
			strconv.FormatFloat(r.TotalHours, 'f', 2, 64),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 8, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDays(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
