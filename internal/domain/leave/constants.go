package leave

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusWithdrawn = "withdrawn"
)

const (
	GenderAll    = "all"
	GenderMale   = "male"
	GenderFemale = "female"
)

const (
	HolidayNational  = "national"
	HolidayReligious = "religious"
	HolidayCompany   = "company"
	HolidayOptional  = "optional"
)

const (
	AccrualMonthly   = "monthly"
	AccrualQuarterly = "quarterly"
	AccrualYearly    = "yearly"
)

const (
	AnchorHireDate     = "hire_date"
	AnchorCalendarYear = "calendar_year"
	AnchorFiscalYear   = "fiscal_year"
)

// terminal reports whether a request status accepts no further transitions.
func terminal(status string) bool {
	switch status {
	case StatusRejected, StatusCancelled, StatusWithdrawn:
		return true
	}
	return false
}
