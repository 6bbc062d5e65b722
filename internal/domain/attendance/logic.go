package attendance

import "time"

// ClassifyCheckIn returns the status a check-in at t earns. The cutoff
// is minutes since local midnight; arriving strictly after it is late.
func ClassifyCheckIn(t time.Time, cutoffMinutes int) string {
	minutes := t.Hour()*60 + t.Minute()
	if minutes > cutoffMinutes {
		return StatusLate
	}
	return StatusPresent
}

// WorkedHours is the elapsed time between the stamps minus unpaid
// break, floored at zero so a clock skew can never produce a negative
// entry.
func WorkedHours(checkIn, checkOut time.Time, breakMinutes int) float64 {
	hours := checkOut.Sub(checkIn).Hours() - float64(breakMinutes)/60.0
	if hours < 0 {
		return 0
	}
	return hours
}

// WorkDate normalizes a timestamp to its calendar date.
func WorkDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validStatus(status string) bool {
	switch status {
	case StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusHoliday, StatusLeave:
		return true
	}
	return false
}
