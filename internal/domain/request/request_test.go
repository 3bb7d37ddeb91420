package request

import (
	"errors"
	"testing"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusDeclined, true},
		{StatusPending, StatusReschedule, true},
		{StatusPending, StatusPending, false},

		// Accepted and declined are terminal.
		{StatusAccepted, StatusDeclined, false},
		{StatusAccepted, StatusPending, false},
		{StatusAccepted, StatusReschedule, false},
		{StatusDeclined, StatusAccepted, false},

		// Reschedule is a resting state with no escape transition.
		{StatusReschedule, StatusPending, false},
		{StatusReschedule, StatusAccepted, false},
		{StatusReschedule, StatusDeclined, false},
		{StatusReschedule, StatusReschedule, false},
	}

	for _, tt := range tests {
		r := &DoctorRequest{Status: tt.from}
		if got := r.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAccept(t *testing.T) {
	r := &DoctorRequest{Status: StatusPending}
	if err := r.Accept("Mondays after 3pm work best"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusAccepted {
		t.Errorf("status = %s, want accepted", r.Status)
	}
	if r.ScheduleNote != "Mondays after 3pm work best" {
		t.Errorf("schedule note not recorded")
	}

	// Second decision on the same request must fail.
	if err := r.Decline(""); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestDecline(t *testing.T) {
	r := &DoctorRequest{Status: StatusPending}
	if err := r.Decline("not accepting new patients"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusDeclined {
		t.Errorf("status = %s, want declined", r.Status)
	}
}

func TestReschedule(t *testing.T) {
	r := &DoctorRequest{Status: StatusPending}

	if err := r.Reschedule("", "note"); !errors.Is(err, ErrProposedSlotRequired) {
		t.Fatalf("expected ErrProposedSlotRequired for empty slot, got %v", err)
	}
	if r.Status != StatusPending {
		t.Fatalf("failed reschedule must not change status, got %s", r.Status)
	}

	if err := r.Reschedule("2026-09-01T10:00", "earlier slot taken"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusReschedule {
		t.Errorf("status = %s, want reschedule", r.Status)
	}
	if r.ProposedSlot != "2026-09-01T10:00" {
		t.Errorf("proposed slot not recorded")
	}
}

func TestUpdateProposal(t *testing.T) {
	r := &DoctorRequest{Status: StatusPending}
	if err := r.UpdateProposal("2026-09-01T10:00", ""); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("proposal update on pending request must fail, got %v", err)
	}

	if err := r.Reschedule("2026-09-01T10:00", ""); err != nil {
		t.Fatal(err)
	}

	// A doctor may re-propose while in reschedule; the state does not move.
	if err := r.UpdateProposal("2026-09-03T14:00", "alternative"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusReschedule {
		t.Errorf("status = %s, want reschedule after re-proposal", r.Status)
	}
	if r.ProposedSlot != "2026-09-03T14:00" {
		t.Errorf("proposed slot = %s, want updated slot", r.ProposedSlot)
	}
}

func TestStatus_IsDecision(t *testing.T) {
	for _, s := range []Status{StatusAccepted, StatusDeclined, StatusReschedule} {
		if !s.IsDecision() {
			t.Errorf("%s should be a valid decision", s)
		}
	}
	if StatusPending.IsDecision() {
		t.Error("pending is not a decision")
	}
	if Status("cancelled").IsDecision() {
		t.Error("unknown status is not a decision")
	}
}
