package service

import (
	"time"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/notification/outbox"

	"github.com/google/uuid"
)

const dateFormat = "2006-01-02"

func newTimelineEntry(appointmentID uuid.UUID, status domain.Status, note string, now time.Time) *domain.TimelineEntry {
	return &domain.TimelineEntry{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Status:        status,
		Note:          &note,
		CreatedAt:     now,
	}
}

func newActivityEntry(appointmentID uuid.UUID, action domain.ActivityAction, actor Actor, oldValue, newValue, reason string, severity domain.Severity, metadata map[string]any, now time.Time) domain.ActivityEntry {
	metadata["actorRole"] = string(actor.Role)
	return domain.ActivityEntry{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Action:        action,
		PerformedBy:   actor.ID,
		OldValue:      oldValue,
		NewValue:      newValue,
		Reason:        reason,
		Severity:      severity,
		Metadata:      metadata,
		CreatedAt:     now,
	}
}

// escalate raises INFO to WARNING when the operator was warned.
func escalate(severity domain.Severity, warnings []string) domain.Severity {
	if severity == domain.SeverityInfo && len(warnings) > 0 {
		return domain.SeverityWarning
	}
	return severity
}

func recipientFor(role string, party domain.Party) outbox.Recipient {
	return outbox.Recipient{
		Role:  role,
		ID:    party.ID,
		Name:  party.Name,
		Email: party.Email,
		Phone: party.Phone,
	}
}

func notificationIntent(appt *domain.Appointment, template string, recipient outbox.Recipient, reason string, data map[string]string, now time.Time) outbox.InsertParams {
	return outbox.InsertParams{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		Kind:          outbox.KindNotification,
		Template:      template,
		Payload: outbox.NotificationPayload{
			AppointmentID: appt.ID,
			Recipient:     recipient,
			ScheduledDate: appt.ScheduledDate.Format(dateFormat),
			Reason:        reason,
			Data:          data,
		},
		RunAt: now,
	}
}
