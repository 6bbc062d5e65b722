package leave

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange            = errors.New("end date before start date")
	ErrNoChargeableDays        = errors.New("no chargeable days in range")
	ErrNotEligibleYet          = errors.New("employee still within probation period")
	ErrNotApplicable           = errors.New("leave type not applicable to employee")
	ErrExceedsConsecutiveLimit = errors.New("request exceeds maximum consecutive days")
	ErrTooFarInAdvance         = errors.New("start date too far in advance")
	ErrInsufficientBalance     = errors.New("insufficient leave balance")
	ErrBalanceNotFound         = errors.New("leave balance not initialized")
	ErrRequestNotFound         = errors.New("leave request not found")
	ErrInvalidTransition       = errors.New("invalid leave request transition")
	ErrReasonRequired          = errors.New("rejection reason required")
	ErrEncashmentNotAllowed    = errors.New("leave type does not allow encashment")
	ErrForbidden               = errors.New("forbidden")

	// ErrLedgerInvariant means a ledger movement was attempted without a
	// matching reservation. It signals a bug in the state machine, never
	// bad user input, and must be surfaced loudly rather than recovered.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
)

// InsufficientBalanceError carries the shortfall so callers can show a
// precise message instead of a bare failure code.
type InsufficientBalanceError struct {
	Available float64
	Requested float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %g, requested %g", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
