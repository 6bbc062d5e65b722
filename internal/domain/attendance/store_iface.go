package attendance

import (
	"context"
	"time"
)

// StoreAPI is what the service needs from persistence. Check-in and
// check-out are conditional single-row statements; the bool result
// reports whether the row was claimed.
type StoreAPI interface {
	InsertCheckIn(ctx context.Context, employeeID string, workDate, checkIn time.Time, status string) (bool, error)
	SetCheckOut(ctx context.Context, employeeID string, workDate, checkOut time.Time) (bool, error)
	Upsert(ctx context.Context, rec AttendanceRecord) (string, error)
	RecordFor(ctx context.Context, employeeID string, workDate time.Time) (AttendanceRecord, error)
	List(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]AttendanceRecord, int, error)
	MonthlySummary(ctx context.Context, employeeID string, year int, month time.Month) (DaySummary, error)
}
