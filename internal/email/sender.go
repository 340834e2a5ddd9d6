// Package email renders and delivers appointment notification emails.
package email

import (
	"context"

	"repair_ops_backend/platform/config"
)

// AppointmentEmail carries the values shown in an appointment notification.
type AppointmentEmail struct {
	ToEmail       string
	RecipientName string
	AppointmentID string
	ScheduledDate string
	Reason        string
	// Details holds template specific values such as technician names.
	Details map[string]string
}

type Sender interface {
	SendAppointmentCancelledEmail(ctx context.Context, msg AppointmentEmail) error
	SendTechnicianUnassignedEmail(ctx context.Context, msg AppointmentEmail) error
	SendTechnicianAssignedEmail(ctx context.Context, msg AppointmentEmail) error
	SendTechnicianChangedEmail(ctx context.Context, msg AppointmentEmail) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendAppointmentCancelledEmail(context.Context, AppointmentEmail) error { return nil }
func (NoopSender) SendTechnicianUnassignedEmail(context.Context, AppointmentEmail) error { return nil }
func (NoopSender) SendTechnicianAssignedEmail(context.Context, AppointmentEmail) error   { return nil }
func (NoopSender) SendTechnicianChangedEmail(context.Context, AppointmentEmail) error    { return nil }

// NewSender returns an SMTP sender when SMTP is configured and a NoopSender otherwise.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
}
