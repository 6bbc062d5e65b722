package attendance

import (
	"testing"
	"time"
)

func stamp(h, m int) time.Time {
	return time.Date(2026, time.March, 9, h, m, 0, 0, time.UTC)
}

func TestClassifyCheckIn(t *testing.T) {
	cutoff := 11 * 60

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"early morning", stamp(8, 30), StatusPresent},
		{"exactly at cutoff", stamp(11, 0), StatusPresent},
		{"one minute past", stamp(11, 1), StatusLate},
		{"afternoon", stamp(14, 45), StatusLate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyCheckIn(tc.at, cutoff); got != tc.want {
				t.Fatalf("ClassifyCheckIn(%v) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}

func TestWorkedHours(t *testing.T) {
	tests := []struct {
		name         string
		in, out      time.Time
		breakMinutes int
		want         float64
	}{
		{"full day", stamp(9, 0), stamp(17, 30), 30, 8},
		{"no break", stamp(9, 0), stamp(17, 0), 0, 8},
		{"break exceeds elapsed", stamp(9, 0), stamp(9, 15), 60, 0},
		{"checkout before checkin floors at zero", stamp(17, 0), stamp(9, 0), 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := WorkedHours(tc.in, tc.out, tc.breakMinutes); got != tc.want {
				t.Fatalf("WorkedHours = %g, want %g", got, tc.want)
			}
		})
	}
}

func TestWorkDateNormalizes(t *testing.T) {
	got := WorkDate(stamp(15, 42))
	want := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("WorkDate = %v, want %v", got, want)
	}
}
