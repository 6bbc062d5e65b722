package leave

import (
	"time"

	"hcm/internal/domain/core"
)

// CheckEligibility runs the policy gates for a prospective request, in
// order, short-circuiting on the first failure:
//
//  1. tenure has cleared the probation window
//  2. the leave type applies to the employee's gender
//  3. the request fits the consecutive-days cap
//  4. the start date is within the advance window
//
// The check is advisory at creation time; the ledger reservation is the
// binding constraint on balance sufficiency.
func CheckEligibility(emp core.Employee, lt LeaveType, pol LeavePolicy, requestedDays int, startDate, asOf time.Time) error {
	probation := pol.ProbationMonths
	if probation == 0 {
		probation = lt.EligibilityMonths
	}
	if probation > 0 && emp.TenureMonths(asOf) < probation {
		return ErrNotEligibleYet
	}

	if lt.ApplicableGender != "" && lt.ApplicableGender != GenderAll && lt.ApplicableGender != emp.Gender {
		return ErrNotApplicable
	}

	if lt.MaxConsecutiveDays > 0 && requestedDays > lt.MaxConsecutiveDays {
		return ErrExceedsConsecutiveLimit
	}

	if !pol.AdvanceLeaveAllowed && pol.MaxAdvanceDays > 0 {
		horizon := dateOnly(asOf).AddDate(0, 0, pol.MaxAdvanceDays)
		if dateOnly(startDate).After(horizon) {
			return ErrTooFarInAdvance
		}
	}

	return nil
}
