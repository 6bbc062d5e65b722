package reports

// BalanceRow is one line of the leave balance summary: one employee,
// one leave type, one year.
type BalanceRow struct {
	EmployeeID     string  `json:"employeeId"`
	EmployeeNumber string  `json:"employeeNumber"`
	EmployeeName   string  `json:"employeeName"`
	LeaveType      string  `json:"leaveType"`
	LeaveTypeCode  string  `json:"leaveTypeCode"`
	Year           int     `json:"year"`
	Allocated      float64 `json:"allocated"`
	CarriedForward float64 `json:"carriedForward"`
	Used           float64 `json:"used"`
	Pending        float64 `json:"pending"`
	Encashed       float64 `json:"encashed"`
	Remaining      float64 `json:"remaining"`
}

// AttendanceRow is one line of the monthly attendance summary.
type AttendanceRow struct {
	EmployeeID     string  `json:"employeeId"`
	EmployeeNumber string  `json:"employeeNumber"`
	EmployeeName   string  `json:"employeeName"`
	PresentDays    int     `json:"presentDays"`
	LateDays       int     `json:"lateDays"`
	AbsentDays     int     `json:"absentDays"`
	HalfDays       int     `json:"halfDays"`
	LeaveDays      int     `json:"leaveDays"`
	TotalHours     float64 `json:"totalHours"`
}
