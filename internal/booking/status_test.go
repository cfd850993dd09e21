package booking

import "testing"

func TestAllowedTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusNoShow, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusRefunded, true},
		{StatusCancelled, StatusConfirmed, false},
		{StatusConfirmed, StatusConfirmed, true},
	}
	for _, tc := range cases {
		if got := AllowedTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("AllowedTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusActive(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusNoShow, StatusRescheduled, StatusRefunded} {
		if !s.Active() {
			t.Fatalf("expected %s to be active", s)
		}
	}
	if StatusCancelled.Active() {
		t.Fatalf("cancelled bookings must not be active")
	}
	if Status("archived").Valid() {
		t.Fatalf("unexpected valid status")
	}
}
