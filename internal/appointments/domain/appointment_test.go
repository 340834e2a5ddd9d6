package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEnterStatusStampsFields(t *testing.T) {
	actor := uuid.New()
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	appt := Appointment{Status: StatusChecking}
	appt.EnterStatus(StatusRepairing, actor, "technician started", now)
	if appt.ActualStartAt == nil || !appt.ActualStartAt.Equal(now) {
		t.Fatalf("expected actual start to be stamped, got %v", appt.ActualStartAt)
	}

	later := now.Add(2 * time.Hour)
	appt.EnterStatus(StatusRepaired, actor, "done", later)
	if !appt.ActualStartAt.Equal(now) {
		t.Fatalf("actual start must not move once set")
	}
	if appt.ActualEndAt == nil || !appt.ActualEndAt.Equal(later) {
		t.Fatalf("expected actual end to be stamped")
	}

	disputed := Appointment{Status: StatusRepairing}
	disputed.EnterStatus(StatusDispute, actor, "customer complaint", now)
	if !disputed.IsDisputed {
		t.Fatalf("expected dispute flag to be set")
	}
}

func TestEnterStatusCancelAndReopen(t *testing.T) {
	actor := uuid.New()
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	appt := Appointment{Status: StatusScheduled}
	appt.EnterStatus(StatusCancelled, actor, "Customer moved abroad", now)
	if appt.CancelledBy == nil || *appt.CancelledBy != actor {
		t.Fatalf("expected cancelledBy to be the actor")
	}
	if appt.CancelReason == nil || *appt.CancelReason != "Customer moved abroad" {
		t.Fatalf("expected cancel reason to be recorded")
	}

	appt.EnterStatus(StatusScheduled, actor, "cancelled by mistake", now.Add(time.Minute))
	if appt.CancelledBy != nil || appt.CancelledAt != nil || appt.CancelReason != nil {
		t.Fatalf("expected cancellation fields to be cleared on reopen")
	}
}

func TestActivityEntryDiff(t *testing.T) {
	entry := ActivityEntry{OldValue: string(StatusScheduled), NewValue: string(StatusRepaired)}
	if got := entry.Diff(); got != "SCHEDULED → REPAIRED" {
		t.Fatalf("Diff() = %q", got)
	}
}

func TestIsStatusAffecting(t *testing.T) {
	cases := map[ActivityAction]bool{
		ActionAppointmentCancelled: true,
		ActionStatusOverridden:     true,
		ActionTechnicianReassigned: false,
	}
	for action, want := range cases {
		if got := action.IsStatusAffecting(); got != want {
			t.Errorf("%s.IsStatusAffecting() = %v, want %v", action, got, want)
		}
	}
}

func TestChargeableAmount(t *testing.T) {
	appt := Appointment{EstimatedCost: 300000}
	if appt.ChargeableAmount() != 300000 {
		t.Fatalf("expected estimate when no final cost")
	}
	final := int64(350000)
	appt.FinalCost = &final
	if appt.ChargeableAmount() != 350000 {
		t.Fatalf("expected final cost when present")
	}
}
