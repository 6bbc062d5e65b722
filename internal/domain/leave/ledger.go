package leave

import "math"

// Pure ledger movements over a single balance row. The Postgres store
// expresses the same semantics as conditional single-row UPDATEs, which
// are the authoritative, concurrency-safe path; these functions back
// the in-memory store used in tests and pre-submission previews.

// Reserve moves days into pending, failing when remaining is short.
func (b *LeaveBalance) Reserve(days float64) error {
	if days > b.Remaining() {
		return &InsufficientBalanceError{Available: b.Remaining(), Requested: days}
	}
	b.Pending += days
	return nil
}

// Commit moves days from pending to used. A shortfall here means a
// commit without a matching reservation.
func (b *LeaveBalance) Commit(days float64) error {
	if b.Pending < days {
		return ErrLedgerInvariant
	}
	b.Pending -= days
	b.Used += days
	return nil
}

// Release returns reserved days to availability without touching used.
func (b *LeaveBalance) Release(days float64) error {
	if b.Pending < days {
		return ErrLedgerInvariant
	}
	b.Pending -= days
	return nil
}

// Refund returns committed days to availability, for cancellation of an
// already approved request.
func (b *LeaveBalance) Refund(days float64) error {
	if b.Used < days {
		return ErrLedgerInvariant
	}
	b.Used -= days
	return nil
}

// Encash converts days to payout, subject to the remaining balance.
func (b *LeaveBalance) EncashDays(days float64) error {
	if days > b.Remaining() {
		return &InsufficientBalanceError{Available: b.Remaining(), Requested: days}
	}
	b.Encashed += days
	return nil
}

// CarryForwardAmount is the portion of this balance that rolls into the
// next year under the given cap; the excess is forfeited.
func (b LeaveBalance) CarryForwardAmount(cap float64) float64 {
	return math.Min(math.Max(b.Remaining(), 0), cap)
}
