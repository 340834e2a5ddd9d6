package email

import (
	"strings"
	"testing"
)

func TestRenderTemplates(t *testing.T) {
	msg := AppointmentEmail{
		RecipientName: "Siti <Admin>",
		AppointmentID: "a-1",
		ScheduledDate: "2026-03-14",
		Reason:        "Customer asked to cancel",
		Details: map[string]string{
			"refundStatus":      "PENDING",
			"oldTechnicianName": "Budi",
			"newTechnicianName": "Dewi",
			"status":            "EN_ROUTE",
			"newEstimatedCost":  "750000",
		},
	}

	cases := map[string][]string{
		"appointment_cancelled.html":       {"2026-03-14", "Customer asked to cancel", "refund has been requested"},
		"technician_unassigned.html":       {"no longer assigned"},
		"technician_assigned.html":         {"taking over from Budi", "EN_ROUTE", "750000"},
		"customer_technician_changed.html": {"handled by Dewi", "750000"},
	}
	for name, wants := range cases {
		out, err := renderEmailTemplate(name, newAppointmentEmailData("Title", msg))
		if err != nil {
			t.Fatalf("%s: render error = %v", name, err)
		}
		for _, want := range wants {
			if !strings.Contains(out, want) {
				t.Errorf("%s: expected %q in output", name, want)
			}
		}
		if strings.Contains(out, "<Admin>") {
			t.Errorf("%s: recipient name must be escaped", name)
		}
	}
}

func TestRenderWithoutDetails(t *testing.T) {
	out, err := renderEmailTemplate("appointment_cancelled.html", newAppointmentEmailData("Title", AppointmentEmail{ScheduledDate: "2026-03-14"}))
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if strings.Contains(out, "refund has been requested") {
		t.Fatalf("refund line must only render for pending refunds")
	}
}

func TestBuildMessage(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "ops@example.com", "Repair Ops")
	if _, err := s.buildMessage("not-an-address", "subject", "<p>x</p>"); err == nil {
		t.Fatalf("expected invalid recipient to fail")
	}
	msg, err := s.buildMessage("siti@example.com", "subject", "<p>x</p>")
	if err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}
	if got := msg.GetToString(); len(got) != 1 || !strings.Contains(got[0], "siti@example.com") {
		t.Fatalf("unexpected recipients %v", got)
	}
}

type smtpDisabled struct{}

func (smtpDisabled) GetSMTPHost() string         { return "" }
func (smtpDisabled) GetSMTPPort() int            { return 0 }
func (smtpDisabled) GetSMTPUsername() string     { return "" }
func (smtpDisabled) GetSMTPPassword() string     { return "" }
func (smtpDisabled) GetEmailFromName() string    { return "" }
func (smtpDisabled) GetEmailFromAddress() string { return "" }
func (smtpDisabled) IsSMTPEnabled() bool         { return false }

func TestNewSenderFallsBackToNoop(t *testing.T) {
	sender, err := NewSender(smtpDisabled{})
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	if _, ok := sender.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", sender)
	}
}
