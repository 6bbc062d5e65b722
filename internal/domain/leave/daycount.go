package leave

import "time"

// DayCountRules is the slice of a policy that drives chargeable-day
// counting. Extracted so the calculator stays a pure function of its
// inputs and previews can run without loading a full policy.
type DayCountRules struct {
	CountWeekends bool
	CountHolidays bool
	SandwichLeave bool
}

func (p LeavePolicy) DayCountRules() DayCountRules {
	return DayCountRules{
		CountWeekends: p.CountWeekends,
		CountHolidays: p.CountHolidays,
		SandwichLeave: p.SandwichLeave,
	}
}

// CountDays returns the number of chargeable leave days in the
// inclusive range [start, end].
//
// Weekends and holidays are skipped when the rules exclude them. With
// the sandwich rule enabled, an interior run of excluded days bounded
// by chargeable days on both sides is charged as well, since the
// employee could not have returned to work in between. Runs touching
// either end of the range are never sandwiched.
//
// Deterministic and side-effect free for a given input.
func CountDays(start, end time.Time, rules DayCountRules, holidays []Holiday) (int, error) {
	start = dateOnly(start)
	end = dateOnly(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	var charged []bool
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		counted := true
		if !rules.CountWeekends && isWeekend(d) {
			counted = false
		}
		if counted && !rules.CountHolidays && holidayOn(d, holidays) {
			counted = false
		}
		charged = append(charged, counted)
	}

	total := 0
	for _, counted := range charged {
		if counted {
			total++
		}
	}

	if rules.SandwichLeave {
		i := 0
		for i < len(charged) {
			if charged[i] {
				i++
				continue
			}
			j := i
			for j < len(charged) && !charged[j] {
				j++
			}
			// Runs are maximal, so charged[i-1] and charged[j] are
			// chargeable whenever they exist.
			if i > 0 && j < len(charged) {
				total += j - i
			}
			i = j
		}
	}

	if total == 0 {
		return 0, ErrNoChargeableDays
	}
	return total, nil
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func holidayOn(d time.Time, holidays []Holiday) bool {
	for _, h := range holidays {
		hd := dateOnly(h.Date)
		if h.Recurring {
			if hd.Month() == d.Month() && hd.Day() == d.Day() {
				return true
			}
			continue
		}
		if hd.Equal(d) {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
