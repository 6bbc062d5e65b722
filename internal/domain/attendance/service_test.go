package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore mirrors the conditional single-row statements of the
// Postgres store over a mutex-guarded map.
type memStore struct {
	mu      sync.Mutex
	records map[string]*AttendanceRecord
	seq     int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*AttendanceRecord)}
}

func recordKey(employeeID string, workDate time.Time) string {
	return employeeID + "/" + workDate.Format("2006-01-02")
}

func (m *memStore) InsertCheckIn(_ context.Context, employeeID string, workDate, checkIn time.Time, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(employeeID, workDate)
	rec, ok := m.records[key]
	if ok && rec.CheckIn != nil {
		return false, nil
	}
	if !ok {
		m.seq++
		rec = &AttendanceRecord{ID: fmt.Sprintf("att-%d", m.seq), EmployeeID: employeeID, WorkDate: workDate}
		m.records[key] = rec
	}
	in := checkIn
	rec.CheckIn = &in
	rec.Status = status
	return true, nil
}

func (m *memStore) SetCheckOut(_ context.Context, employeeID string, workDate, checkOut time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(employeeID, workDate)]
	if !ok || rec.CheckIn == nil {
		return false, nil
	}
	out := checkOut
	rec.CheckOut = &out
	hours := WorkedHours(*rec.CheckIn, checkOut, rec.BreakMinutes)
	rec.TotalHours = &hours
	return true, nil
}

func (m *memStore) Upsert(_ context.Context, in AttendanceRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(in.EmployeeID, in.WorkDate)
	rec, ok := m.records[key]
	if !ok {
		m.seq++
		in.ID = fmt.Sprintf("att-%d", m.seq)
		m.records[key] = &in
		return in.ID, nil
	}
	in.ID = rec.ID
	*rec = in
	return rec.ID, nil
}

func (m *memStore) RecordFor(_ context.Context, employeeID string, workDate time.Time) (AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(employeeID, workDate)]
	if !ok {
		return AttendanceRecord{}, ErrRecordNotFound
	}
	return *rec, nil
}

func (m *memStore) List(_ context.Context, employeeID string, from, to time.Time, _, _ int) ([]AttendanceRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AttendanceRecord
	for _, rec := range m.records {
		if employeeID != "" && rec.EmployeeID != employeeID {
			continue
		}
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (m *memStore) MonthlySummary(_ context.Context, employeeID string, _ int, _ time.Month) (DaySummary, error) {
	return DaySummary{EmployeeID: employeeID}, nil
}

var _ StoreAPI = (*memStore)(nil)

func newTestService(at time.Time) (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store, DefaultLateCutoffMinutes)
	svc.Now = func() time.Time { return at }
	return svc, store
}

func TestCheckInOncePerDay(t *testing.T) {
	svc, _ := newTestService(stamp(9, 0))

	rec, err := svc.CheckIn(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if rec.Status != StatusPresent || rec.CheckIn == nil {
		t.Fatalf("first check-in = %+v", rec)
	}

	if _, err := svc.CheckIn(context.Background(), "emp-1"); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestCheckInLateAfterCutoff(t *testing.T) {
	svc, _ := newTestService(stamp(11, 30))

	rec, err := svc.CheckIn(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if rec.Status != StatusLate {
		t.Fatalf("status = %s, want late", rec.Status)
	}
}

func TestCheckOutRequiresCheckIn(t *testing.T) {
	svc, _ := newTestService(stamp(17, 0))
	if _, err := svc.CheckOut(context.Background(), "emp-1"); !errors.Is(err, ErrNoCheckInToday) {
		t.Fatalf("expected ErrNoCheckInToday, got %v", err)
	}
}

func TestMostRecentCheckOutWins(t *testing.T) {
	svc, _ := newTestService(stamp(9, 0))
	if _, err := svc.CheckIn(context.Background(), "emp-1"); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	svc.Now = func() time.Time { return stamp(16, 0) }
	first, err := svc.CheckOut(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("first CheckOut failed: %v", err)
	}
	if first.TotalHours == nil || *first.TotalHours != 7 {
		t.Fatalf("first totalHours = %v, want 7", first.TotalHours)
	}

	svc.Now = func() time.Time { return stamp(18, 0) }
	second, err := svc.CheckOut(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("second CheckOut failed: %v", err)
	}
	if !second.CheckOut.Equal(stamp(18, 0)) {
		t.Fatalf("checkOut = %v, want the later stamp", second.CheckOut)
	}
	if second.TotalHours == nil || *second.TotalHours != 9 {
		t.Fatalf("second totalHours = %v, want 9", second.TotalHours)
	}
}

func TestConcurrentCheckInSingleWinner(t *testing.T) {
	for run := 0; run < 25; run++ {
		svc, store := newTestService(stamp(9, 0))

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.CheckIn(context.Background(), "emp-1")
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else if !errors.Is(err, ErrAlreadyCheckedIn) {
				t.Fatalf("unexpected check-in error: %v", err)
			}
		}
		if winners != 1 {
			t.Fatalf("run %d: %d check-ins succeeded, want exactly 1", run, winners)
		}
		if len(store.records) != 1 {
			t.Fatalf("run %d: %d records created, want 1", run, len(store.records))
		}
	}
}

func TestAdminUpsertRecomputesHoursAndNeverDuplicates(t *testing.T) {
	svc, store := newTestService(stamp(9, 0))
	in := stamp(9, 0)
	out := stamp(17, 0)

	rec, err := svc.AdminUpsert(context.Background(), AttendanceRecord{
		EmployeeID:   "emp-1",
		WorkDate:     stamp(12, 0),
		CheckIn:      &in,
		CheckOut:     &out,
		BreakMinutes: 60,
		Status:       StatusHalfDay,
	})
	if err != nil {
		t.Fatalf("AdminUpsert failed: %v", err)
	}
	if rec.TotalHours == nil || *rec.TotalHours != 7 {
		t.Fatalf("totalHours = %v, want 7", rec.TotalHours)
	}
	if !rec.WorkDate.Equal(WorkDate(stamp(0, 0))) {
		t.Fatalf("workDate not normalized: %v", rec.WorkDate)
	}

	// Second override on the same day replaces the row.
	rec2, err := svc.AdminUpsert(context.Background(), AttendanceRecord{
		EmployeeID: "emp-1",
		WorkDate:   stamp(12, 0),
		Status:     StatusAbsent,
	})
	if err != nil {
		t.Fatalf("second AdminUpsert failed: %v", err)
	}
	if rec2.Status != StatusAbsent || rec2.TotalHours != nil {
		t.Fatalf("override = %+v", rec2)
	}
	if len(store.records) != 1 {
		t.Fatalf("%d records, want 1", len(store.records))
	}

	if _, err := svc.AdminUpsert(context.Background(), AttendanceRecord{EmployeeID: "emp-1", WorkDate: stamp(12, 0), Status: "vacationing"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
