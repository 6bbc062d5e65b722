package leave

import (
	"errors"
	"testing"
	"time"

	"hcm/internal/domain/core"
)

func testEmployee(startDate time.Time, gender string) core.Employee {
	return core.Employee{
		ID:        "emp-1",
		Gender:    gender,
		StartDate: &startDate,
		Status:    "active",
	}
}

func TestCheckEligibilityProbation(t *testing.T) {
	asOf := day(2026, time.June, 1)
	emp := testEmployee(day(2026, time.April, 1), core.GenderFemale)
	pol := LeavePolicy{ProbationMonths: 3}

	err := CheckEligibility(emp, LeaveType{}, pol, 1, day(2026, time.June, 10), asOf)
	if !errors.Is(err, ErrNotEligibleYet) {
		t.Fatalf("expected ErrNotEligibleYet, got %v", err)
	}

	// Same employee checked after the probation window clears.
	later := day(2026, time.July, 2)
	if err := CheckEligibility(emp, LeaveType{}, pol, 1, day(2026, time.July, 10), later); err != nil {
		t.Fatalf("expected eligible after probation, got %v", err)
	}
}

func TestCheckEligibilityTypeMonthsFallback(t *testing.T) {
	asOf := day(2026, time.June, 1)
	emp := testEmployee(day(2026, time.April, 1), core.GenderMale)
	lt := LeaveType{EligibilityMonths: 6}

	err := CheckEligibility(emp, lt, LeavePolicy{}, 1, day(2026, time.June, 10), asOf)
	if !errors.Is(err, ErrNotEligibleYet) {
		t.Fatalf("expected ErrNotEligibleYet from type eligibility months, got %v", err)
	}
}

func TestCheckEligibilityGender(t *testing.T) {
	asOf := day(2026, time.June, 1)
	emp := testEmployee(day(2020, time.January, 1), core.GenderMale)
	lt := LeaveType{ApplicableGender: GenderFemale}

	err := CheckEligibility(emp, lt, LeavePolicy{}, 1, day(2026, time.June, 10), asOf)
	if !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}

	lt.ApplicableGender = GenderAll
	if err := CheckEligibility(emp, lt, LeavePolicy{}, 1, day(2026, time.June, 10), asOf); err != nil {
		t.Fatalf("expected applicable-to-all to pass, got %v", err)
	}
}

func TestCheckEligibilityConsecutiveLimit(t *testing.T) {
	asOf := day(2026, time.June, 1)
	emp := testEmployee(day(2020, time.January, 1), core.GenderFemale)
	lt := LeaveType{MaxConsecutiveDays: 5}

	err := CheckEligibility(emp, lt, LeavePolicy{}, 6, day(2026, time.June, 10), asOf)
	if !errors.Is(err, ErrExceedsConsecutiveLimit) {
		t.Fatalf("expected ErrExceedsConsecutiveLimit, got %v", err)
	}
	if err := CheckEligibility(emp, lt, LeavePolicy{}, 5, day(2026, time.June, 10), asOf); err != nil {
		t.Fatalf("expected request at the cap to pass, got %v", err)
	}
}

func TestCheckEligibilityAdvanceWindow(t *testing.T) {
	asOf := day(2026, time.June, 1)
	emp := testEmployee(day(2020, time.January, 1), core.GenderFemale)
	pol := LeavePolicy{MaxAdvanceDays: 30}

	err := CheckEligibility(emp, LeaveType{}, pol, 1, day(2026, time.August, 1), asOf)
	if !errors.Is(err, ErrTooFarInAdvance) {
		t.Fatalf("expected ErrTooFarInAdvance, got %v", err)
	}

	// Inside the window.
	if err := CheckEligibility(emp, LeaveType{}, pol, 1, day(2026, time.June, 20), asOf); err != nil {
		t.Fatalf("expected start inside window to pass, got %v", err)
	}

	// The window only applies when advance leave is disallowed.
	pol.AdvanceLeaveAllowed = true
	if err := CheckEligibility(emp, LeaveType{}, pol, 1, day(2026, time.August, 1), asOf); err != nil {
		t.Fatalf("expected advance-allowed policy to pass, got %v", err)
	}
}

func TestCheckEligibilityOrder(t *testing.T) {
	// Every gate would fail; probation must win because it runs first.
	asOf := day(2026, time.June, 1)
	emp := testEmployee(day(2026, time.May, 1), core.GenderMale)
	lt := LeaveType{ApplicableGender: GenderFemale, MaxConsecutiveDays: 2}
	pol := LeavePolicy{ProbationMonths: 6, MaxAdvanceDays: 10}

	err := CheckEligibility(emp, lt, pol, 10, day(2026, time.December, 1), asOf)
	if !errors.Is(err, ErrNotEligibleYet) {
		t.Fatalf("expected probation gate to short-circuit, got %v", err)
	}
}
