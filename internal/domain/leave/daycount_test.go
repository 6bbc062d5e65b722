package leave

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountDaysScenarios(t *testing.T) {
	holidays := []Holiday{
		{Name: "Founders Day", Date: day(2026, time.March, 4), Type: HolidayCompany},
		{Name: "New Year", Date: day(2020, time.January, 1), Recurring: true, Type: HolidayNational},
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		rules DayCountRules
		want  int
	}{
		{
			name:  "monday through friday",
			start: day(2026, time.March, 9),
			end:   day(2026, time.March, 13),
			want:  5,
		},
		{
			name:  "friday to monday skips weekend",
			start: day(2026, time.March, 6),
			end:   day(2026, time.March, 9),
			want:  2,
		},
		{
			name:  "friday to monday with sandwich charges weekend",
			start: day(2026, time.March, 6),
			end:   day(2026, time.March, 9),
			rules: DayCountRules{SandwichLeave: true},
			want:  4,
		},
		{
			name:  "weekend counted when policy says so",
			start: day(2026, time.March, 7),
			end:   day(2026, time.March, 8),
			rules: DayCountRules{CountWeekends: true},
			want:  2,
		},
		{
			name:  "exact-date holiday excluded",
			start: day(2026, time.March, 2),
			end:   day(2026, time.March, 6),
			want:  4,
		},
		{
			name:  "holiday counted when policy says so",
			start: day(2026, time.March, 2),
			end:   day(2026, time.March, 6),
			rules: DayCountRules{CountHolidays: true},
			want:  5,
		},
		{
			name:  "recurring holiday matches a later year",
			start: day(2025, time.December, 31),
			end:   day(2026, time.January, 2),
			want:  2,
		},
		{
			name:  "midweek holiday sandwiched between worked days",
			start: day(2026, time.March, 3),
			end:   day(2026, time.March, 5),
			rules: DayCountRules{SandwichLeave: true},
			want:  3,
		},
		{
			name:  "single day",
			start: day(2026, time.March, 10),
			end:   day(2026, time.March, 10),
			want:  1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CountDays(tc.start, tc.end, tc.rules, holidays)
			if err != nil {
				t.Fatalf("CountDays returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("CountDays = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCountDaysInvalidRange(t *testing.T) {
	_, err := CountDays(day(2026, time.March, 10), day(2026, time.March, 9), DayCountRules{}, nil)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCountDaysAllExcluded(t *testing.T) {
	// Saturday and Sunday only, weekends not counted.
	_, err := CountDays(day(2026, time.March, 7), day(2026, time.March, 8), DayCountRules{}, nil)
	if !errors.Is(err, ErrNoChargeableDays) {
		t.Fatalf("expected ErrNoChargeableDays, got %v", err)
	}
}

func TestCountDaysSandwichNeverChargesEdges(t *testing.T) {
	// Saturday through Monday: the weekend touches the start of the
	// range, so the sandwich rule must not charge it.
	got, err := CountDays(day(2026, time.March, 7), day(2026, time.March, 9), DayCountRules{SandwichLeave: true}, nil)
	if err != nil {
		t.Fatalf("CountDays returned error: %v", err)
	}
	if got != 1 {
		t.Fatalf("CountDays = %d, want 1", got)
	}
}

func TestCountDaysDeterministic(t *testing.T) {
	holidays := []Holiday{{Name: "Eid", Date: day(2026, time.March, 20), Type: HolidayReligious}}
	rules := DayCountRules{SandwichLeave: true}
	first, err := CountDays(day(2026, time.March, 16), day(2026, time.March, 27), rules, holidays)
	if err != nil {
		t.Fatalf("CountDays returned error: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := CountDays(day(2026, time.March, 16), day(2026, time.March, 27), rules, holidays)
		if err != nil {
			t.Fatalf("CountDays returned error on run %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("CountDays not deterministic: run %d gave %d, first gave %d", i, again, first)
		}
	}
}
