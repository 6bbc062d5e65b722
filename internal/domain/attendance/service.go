package attendance

import (
	"context"
	"time"
)

type Service struct {
	Store StoreAPI

	// CutoffMinutes is the late threshold as minutes since midnight.
	CutoffMinutes int

	// Now is the injected clock; tests pin it to fixed instants.
	Now func() time.Time
}

func NewService(store StoreAPI, cutoffMinutes int) *Service {
	if cutoffMinutes <= 0 {
		cutoffMinutes = DefaultLateCutoffMinutes
	}
	return &Service{Store: store, CutoffMinutes: cutoffMinutes, Now: time.Now}
}

// CheckIn stamps the employee's arrival for today. The first stamp of
// the day wins; any later attempt fails with ErrAlreadyCheckedIn.
func (s *Service) CheckIn(ctx context.Context, employeeID string) (AttendanceRecord, error) {
	now := s.Now()
	workDate := WorkDate(now)
	status := ClassifyCheckIn(now, s.CutoffMinutes)

	claimed, err := s.Store.InsertCheckIn(ctx, employeeID, workDate, now, status)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if !claimed {
		return AttendanceRecord{}, ErrAlreadyCheckedIn
	}
	return s.Store.RecordFor(ctx, employeeID, workDate)
}

// CheckOut stamps the departure. Unlike check-in it may repeat; each
// call overwrites the previous stamp and worked hours follow the most
// recent one.
func (s *Service) CheckOut(ctx context.Context, employeeID string) (AttendanceRecord, error) {
	now := s.Now()
	workDate := WorkDate(now)

	stamped, err := s.Store.SetCheckOut(ctx, employeeID, workDate, now)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if !stamped {
		return AttendanceRecord{}, ErrNoCheckInToday
	}
	return s.Store.RecordFor(ctx, employeeID, workDate)
}

// AdminUpsert is the override path for corrections and bulk marking.
// Worked hours are recomputed here so an edited break or stamp cannot
// leave a stale total behind.
func (s *Service) AdminUpsert(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	if !validStatus(rec.Status) {
		return AttendanceRecord{}, ErrInvalidStatus
	}
	rec.WorkDate = WorkDate(rec.WorkDate)
	rec.TotalHours = nil
	if rec.CheckIn != nil && rec.CheckOut != nil {
		hours := WorkedHours(*rec.CheckIn, *rec.CheckOut, rec.BreakMinutes)
		rec.TotalHours = &hours
	}

	if _, err := s.Store.Upsert(ctx, rec); err != nil {
		return AttendanceRecord{}, err
	}
	return s.Store.RecordFor(ctx, rec.EmployeeID, rec.WorkDate)
}

func (s *Service) RecordFor(ctx context.Context, employeeID string, workDate time.Time) (AttendanceRecord, error) {
	return s.Store.RecordFor(ctx, employeeID, WorkDate(workDate))
}

func (s *Service) List(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]AttendanceRecord, int, error) {
	return s.Store.List(ctx, employeeID, from, to, limit, offset)
}

func (s *Service) MonthlySummary(ctx context.Context, employeeID string, year int, month time.Month) (DaySummary, error) {
	return s.Store.MonthlySummary(ctx, employeeID, year, month)
}
