package core

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

type Employee struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Gender         string     `json:"gender"`
	DepartmentID   string     `json:"departmentId"`
	ManagerID      string     `json:"managerId"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ManagerID string    `json:"managerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TenureMonths returns whole months of service as of the given date.
func (e Employee) TenureMonths(asOf time.Time) int {
	if e.StartDate == nil || asOf.Before(*e.StartDate) {
		return 0
	}
	start := *e.StartDate
	months := (asOf.Year()-start.Year())*12 + int(asOf.Month()) - int(start.Month())
	if asOf.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
