package leave

import "time"

type LeaveType struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Code                string    `json:"code"`
	AnnualAllocation    float64   `json:"annualAllocation"`
	MaxConsecutiveDays  int       `json:"maxConsecutiveDays"`
	CarryForwardAllowed bool      `json:"carryForwardAllowed"`
	CarryForwardCap     float64   `json:"carryForwardCap"`
	EncashmentAllowed   bool      `json:"encashmentAllowed"`
	RequiresDoc         bool      `json:"requiresDoc"`
	EligibilityMonths   int       `json:"eligibilityMonths"`
	ApplicableGender    string    `json:"applicableGender"`
	Color               string    `json:"color"`
	CreatedAt           time.Time `json:"createdAt"`
}

type LeavePolicy struct {
	ID                  string     `json:"id"`
	LeaveTypeID         string     `json:"leaveTypeId"`
	DepartmentID        string     `json:"departmentId,omitempty"`
	AccrualPeriod       string     `json:"accrualPeriod"`
	AccrualAnchor       string     `json:"accrualAnchor"`
	CountWeekends       bool       `json:"countWeekends"`
	CountHolidays       bool       `json:"countHolidays"`
	SandwichLeave       bool       `json:"sandwichLeave"`
	AdvanceLeaveAllowed bool       `json:"advanceLeaveAllowed"`
	MaxAdvanceDays      int        `json:"maxAdvanceDays"`
	ProbationMonths     int        `json:"probationMonths"`
	EffectiveFrom       *time.Time `json:"effectiveFrom,omitempty"`
	EffectiveTo         *time.Time `json:"effectiveTo,omitempty"`
	Active              bool       `json:"active"`
}

type Holiday struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Date             time.Time `json:"date"`
	Recurring        bool      `json:"recurring"`
	Type             string    `json:"type"`
	ApplicableGender string    `json:"applicableGender"`
}

// AppliesTo reports whether the holiday applies to an employee of the
// given gender. Optional holidays still apply; whether the employee
// observes them is a request-time choice, not a calendar property.
func (h Holiday) AppliesTo(gender string) bool {
	return h.ApplicableGender == "" || h.ApplicableGender == GenderAll || h.ApplicableGender == gender
}

// LeaveBalance is the per (employee, leaveType, year) ledger row.
// Remaining is always derived, never stored.
type LeaveBalance struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employeeId"`
	LeaveTypeID    string    `json:"leaveTypeId"`
	Year           int       `json:"year"`
	Allocated      float64   `json:"allocated"`
	CarriedForward float64   `json:"carriedForward"`
	Used           float64   `json:"used"`
	Pending        float64   `json:"pending"`
	Encashed       float64   `json:"encashed"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Remaining is the number of days still available to reserve.
func (b LeaveBalance) Remaining() float64 {
	return b.Allocated + b.CarriedForward - b.Used - b.Pending - b.Encashed
}

type LeaveRequest struct {
	ID                 string     `json:"id"`
	EmployeeID         string     `json:"employeeId"`
	LeaveTypeID        string     `json:"leaveTypeId"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            time.Time  `json:"endDate"`
	TotalDays          int        `json:"totalDays"`
	Reason             string     `json:"reason"`
	Status             string     `json:"status"`
	Emergency          bool       `json:"emergency"`
	HandoverNotes      string     `json:"handoverNotes,omitempty"`
	ContactDuringLeave string     `json:"contactDuringLeave,omitempty"`
	AppliedAt          time.Time  `json:"appliedAt"`
	ApproverID         string     `json:"approverId,omitempty"`
	DecidedAt          *time.Time `json:"decidedAt,omitempty"`
	RejectionReason    string     `json:"rejectionReason,omitempty"`
}

// RequestEvent is one append-only entry in a request's transition history.
type RequestEvent struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"requestId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorID    string    `json:"actorId"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
