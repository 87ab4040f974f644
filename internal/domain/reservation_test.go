package domain

import "testing"

func TestCanTransition_AllowedEdges(t *testing.T) {
	allowed := []struct {
		from, to ReservationStatus
	}{
		{ReservationPendingPayment, ReservationPending},
		{ReservationPendingPayment, ReservationConfirmed},
		{ReservationPendingPayment, ReservationCancelled},
		{ReservationPending, ReservationConfirmed},
		{ReservationConfirmed, ReservationInProgress},
		{ReservationConfirmed, ReservationCancelled},
		{ReservationInProgress, ReservationPendingReview},
		{ReservationInProgress, ReservationCompleted},
		{ReservationPendingReview, ReservationCompleted},
		{ReservationPendingReview, ReservationCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectedEdges(t *testing.T) {
	rejected := []struct {
		from, to ReservationStatus
	}{
		{ReservationCompleted, ReservationCancelled},
		{ReservationCancelled, ReservationPending},
		{ReservationCancelled, ReservationCancelled},
		{ReservationPendingPayment, ReservationInProgress},
		{ReservationPending, ReservationCompleted},
		{ReservationConfirmed, ReservationPendingReview},
		{ReservationCompleted, ReservationPendingPayment},
	}
	for _, tc := range rejected {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !ReservationCompleted.IsTerminal() || !ReservationCancelled.IsTerminal() {
		t.Fatal("completed and cancelled must be terminal")
	}
	for _, s := range []ReservationStatus{
		ReservationPendingPayment, ReservationPending, ReservationConfirmed,
		ReservationInProgress, ReservationPendingReview,
	} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestActiveStatuses_ExcludePendingPayment(t *testing.T) {
	for _, s := range ActiveReservationStatuses() {
		if s == ReservationPendingPayment {
			t.Fatal("pending_payment must not count as active")
		}
		if s == ReservationCancelled || s == ReservationCompleted {
			t.Fatalf("%s must not count as active", s)
		}
	}
}
