package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction names an administrative mutation.
type ActivityAction string

const (
	ActionAppointmentCancelled ActivityAction = "APPOINTMENT_CANCELLED"
	ActionTechnicianReassigned ActivityAction = "TECHNICIAN_REASSIGNED"
	ActionStatusOverridden     ActivityAction = "STATUS_OVERRIDDEN"
)

// IsStatusAffecting reports whether entries of this action record a status change.
func (a ActivityAction) IsStatusAffecting() bool {
	return a == ActionAppointmentCancelled || a == ActionStatusOverridden
}

// ActivityEntry is one append-only audit record.
type ActivityEntry struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Action        ActivityAction
	PerformedBy   uuid.UUID
	OldValue      string
	NewValue      string
	Reason        string
	Severity      Severity
	Metadata      map[string]any
	CreatedAt     time.Time
}

// Diff renders the change as "OLD → NEW".
func (e ActivityEntry) Diff() string {
	return e.OldValue + " → " + e.NewValue
}

// Media is an uploaded photo or video attached by the technician.
type Media struct {
	ID          uuid.UUID
	Kind        string
	ObjectKey   string
	ContentType string
	UploadedAt  time.Time
}

// Note is a free-text remark left on the appointment.
type Note struct {
	ID         uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

// GPSLog is one recorded technician position.
type GPSLog struct {
	ID         uuid.UUID
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// Payment is the payment collaborator's view of the appointment.
type Payment struct {
	ID     uuid.UUID
	Amount int64
	Method string
	Status string
	PaidAt *time.Time
}

// Dispute is a complaint raised by either party.
type Dispute struct {
	ID        uuid.UUID
	RaisedBy  uuid.UUID
	Reason    string
	Status    string
	CreatedAt time.Time
}
