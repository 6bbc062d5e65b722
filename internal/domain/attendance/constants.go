package attendance

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusHalfDay = "half_day"
	StatusHoliday = "holiday"
	StatusLeave   = "leave"
)

// DefaultLateCutoffMinutes is 11:00 as minutes since midnight.
const DefaultLateCutoffMinutes = 11 * 60
