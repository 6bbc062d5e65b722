package leave

import (
	"errors"
	"testing"
)

func TestRemainingIdentity(t *testing.T) {
	b := LeaveBalance{Allocated: 20, CarriedForward: 4, Used: 6, Pending: 2, Encashed: 1}
	if got := b.Remaining(); got != 15 {
		t.Fatalf("Remaining = %g, want 15", got)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	b := LeaveBalance{Allocated: 10}
	before := b.Remaining()

	if err := b.Reserve(3); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if got := b.Remaining(); got != before-3 {
		t.Fatalf("Remaining after reserve = %g, want %g", got, before-3)
	}
	if err := b.Release(3); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if got := b.Remaining(); got != before {
		t.Fatalf("Remaining after round trip = %g, want %g", got, before)
	}
	if b.Used != 0 {
		t.Fatalf("round trip must not touch used, got %g", b.Used)
	}
}

func TestReserveCommitMovesPendingToUsed(t *testing.T) {
	b := LeaveBalance{Allocated: 10}
	remaining := b.Remaining()

	if err := b.Reserve(4); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := b.Commit(4); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if b.Pending != 0 || b.Used != 4 {
		t.Fatalf("after commit pending=%g used=%g, want 0 and 4", b.Pending, b.Used)
	}
	if got := b.Remaining(); got != remaining-4 {
		t.Fatalf("Remaining after commit = %g, want %g", got, remaining-4)
	}
}

func TestReserveInsufficientReportsShortfall(t *testing.T) {
	b := LeaveBalance{Allocated: 5, Used: 3}

	err := b.Reserve(5)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	var detail *InsufficientBalanceError
	if !errors.As(err, &detail) {
		t.Fatalf("expected InsufficientBalanceError, got %T", err)
	}
	if detail.Available != 2 || detail.Requested != 5 {
		t.Fatalf("shortfall = %+v, want available 2 requested 5", detail)
	}
	if b.Pending != 0 {
		t.Fatalf("failed reserve must not mutate the balance, pending=%g", b.Pending)
	}
}

func TestCommitWithoutReservationIsInvariantViolation(t *testing.T) {
	b := LeaveBalance{Allocated: 10, Pending: 1}
	if err := b.Commit(2); !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected ErrLedgerInvariant, got %v", err)
	}
	if err := b.Release(2); !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected ErrLedgerInvariant on over-release, got %v", err)
	}
}

func TestRefundReturnsUsedDays(t *testing.T) {
	b := LeaveBalance{Allocated: 10, Used: 4}
	remaining := b.Remaining()
	if err := b.Refund(4); err != nil {
		t.Fatalf("Refund failed: %v", err)
	}
	if got := b.Remaining(); got != remaining+4 {
		t.Fatalf("Remaining after refund = %g, want %g", got, remaining+4)
	}
	if err := b.Refund(1); !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected ErrLedgerInvariant refunding more than used, got %v", err)
	}
}

func TestEncashRespectsRemaining(t *testing.T) {
	b := LeaveBalance{Allocated: 8, Used: 5}
	if err := b.EncashDays(3); err != nil {
		t.Fatalf("EncashDays failed: %v", err)
	}
	if b.Encashed != 3 || b.Remaining() != 0 {
		t.Fatalf("after encash encashed=%g remaining=%g", b.Encashed, b.Remaining())
	}
	if err := b.EncashDays(1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestCarryForwardAmountCaps(t *testing.T) {
	tests := []struct {
		name string
		b    LeaveBalance
		cap  float64
		want float64
	}{
		{"under cap", LeaveBalance{Allocated: 10, Used: 7}, 5, 3},
		{"capped", LeaveBalance{Allocated: 20, Used: 2}, 5, 5},
		{"nothing left", LeaveBalance{Allocated: 10, Used: 10}, 5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.b.CarryForwardAmount(tc.cap); got != tc.want {
				t.Fatalf("CarryForwardAmount = %g, want %g", got, tc.want)
			}
		})
	}
}
