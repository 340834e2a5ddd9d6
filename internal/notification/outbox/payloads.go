package outbox

import (
	"github.com/google/uuid"
)

// Kind groups outbox records by the collaborator that consumes them.
type Kind string

const (
	KindNotification Kind = "notification"
	KindRefund       Kind = "refund"
	KindPenalty      Kind = "penalty"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindNotification, KindRefund, KindPenalty:
		return true
	}
	return false
}

// Notification templates.
const (
	TemplateAppointmentCancelled = "appointment_cancelled"
	TemplateTechnicianUnassigned = "technician_unassigned"
	TemplateTechnicianAssigned   = "technician_assigned"
	TemplateCustomerTechChanged  = "customer_technician_changed"
	TemplateRefundRequest        = "refund_request"
	TemplateTechnicianPenalty    = "technician_penalty"
)

// Recipient roles.
const (
	RecipientCustomer   = "customer"
	RecipientTechnician = "technician"
)

// Recipient identifies who a notification is owed to.
type Recipient struct {
	Role  string    `json:"role"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
	Phone *string   `json:"phone,omitempty"`
}

// NotificationPayload is stored for KindNotification records.
type NotificationPayload struct {
	AppointmentID uuid.UUID         `json:"appointmentId"`
	Recipient     Recipient         `json:"recipient"`
	ScheduledDate string            `json:"scheduledDate"`
	Reason        string            `json:"reason"`
	Data          map[string]string `json:"data,omitempty"`
}

// RefundPayload is stored for KindRefund records.
type RefundPayload struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	RequestedBy   uuid.UUID `json:"requestedBy"`
}

// PenaltyPayload is stored for KindPenalty records.
type PenaltyPayload struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	TechnicianID  uuid.UUID `json:"technicianId"`
	PenaltyType   string    `json:"penaltyType"`
	Reason        string    `json:"reason"`
	IssuedBy      uuid.UUID `json:"issuedBy"`
}
