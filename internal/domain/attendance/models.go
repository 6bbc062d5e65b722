package attendance

import "time"

// AttendanceRecord is the single row per (employee, workDate). CheckOut
// and TotalHours stay nil until the matching stamp exists; TotalHours
// is undefined until both stamps are present.
type AttendanceRecord struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employeeId"`
	WorkDate     time.Time  `json:"workDate"`
	CheckIn      *time.Time `json:"checkIn,omitempty"`
	CheckOut     *time.Time `json:"checkOut,omitempty"`
	BreakMinutes int        `json:"breakMinutes"`
	TotalHours   *float64   `json:"totalHours,omitempty"`
	Status       string     `json:"status"`
	Note         string     `json:"note,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DaySummary is one aggregate row of the monthly attendance report.
type DaySummary struct {
	EmployeeID   string  `json:"employeeId"`
	PresentDays  int     `json:"presentDays"`
	LateDays     int     `json:"lateDays"`
	AbsentDays   int     `json:"absentDays"`
	HalfDays     int     `json:"halfDays"`
	LeaveDays    int     `json:"leaveDays"`
	TotalHours   float64 `json:"totalHours"`
	AverageHours float64 `json:"averageHours"`
}
