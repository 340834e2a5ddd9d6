// Package events defines the appointment domain events exchanged between
// modules. Bus infrastructure lives in platform/events.
package events

import (
	"encoding/json"

	"repair_ops_backend/platform/events"
	"repair_ops_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// AppointmentEvent is implemented by events that belong to one appointment.
// The audit stream keys messages by AppointmentKey so one appointment's
// events stay ordered.
type AppointmentEvent interface {
	Event
	AppointmentKey() uuid.UUID
}

// =============================================================================
// Appointment workflow events (published after commit)
// =============================================================================

// AppointmentCancelled is published when an operator force-cancels an appointment.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	ActorID        uuid.UUID `json:"actorId"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	PreviousStatus string    `json:"previousStatus"`
	Reason         string    `json:"reason"`
	RefundStatus   string    `json:"refundStatus"`
	RefundAmount   *int64    `json:"refundAmount,omitempty"`
	PenaltyApplied bool      `json:"penaltyApplied"`
}

func (e AppointmentCancelled) EventName() string { return "appointments.cancelled" }
func (e AppointmentCancelled) AppointmentKey() uuid.UUID { return e.AppointmentID }

// TechnicianReassigned is published when an appointment moves to another technician.
type TechnicianReassigned struct {
	BaseEvent
	AppointmentID    uuid.UUID `json:"appointmentId"`
	ActorID          uuid.UUID `json:"actorId"`
	OldTechnicianID  uuid.UUID `json:"oldTechnicianId"`
	NewTechnicianID  uuid.UUID `json:"newTechnicianId"`
	NewOfferID       uuid.UUID `json:"newOfferId"`
	Status           string    `json:"status"`
	PriceAdjusted    bool      `json:"priceAdjusted"`
	NewEstimatedCost int64     `json:"newEstimatedCost"`
	Reason           string    `json:"reason"`
}

func (e TechnicianReassigned) EventName() string { return "appointments.technician_reassigned" }
func (e TechnicianReassigned) AppointmentKey() uuid.UUID { return e.AppointmentID }

// AppointmentStatusOverridden is published when an operator forces a status.
type AppointmentStatusOverridden struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	ActorID        uuid.UUID `json:"actorId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	SkipValidation bool      `json:"skipValidation"`
	Severity       string    `json:"severity"`
	Warnings       []string  `json:"warnings"`
	Reason         string    `json:"reason"`
}

func (e AppointmentStatusOverridden) EventName() string { return "appointments.status_overridden" }
func (e AppointmentStatusOverridden) AppointmentKey() uuid.UUID { return e.AppointmentID }

// =============================================================================
// Intent delivery
// =============================================================================

// AppointmentOutboxDue is published by the worker when a queued intent is due.
// Subscribers deliver it and report the outcome on the outbox row.
type AppointmentOutboxDue struct {
	BaseEvent
	OutboxID      uuid.UUID       `json:"outboxId"`
	AppointmentID uuid.UUID       `json:"appointmentId"`
	Kind          string          `json:"kind"`
	Template      string          `json:"template"`
	Payload       json.RawMessage `json:"payload"`
}

func (e AppointmentOutboxDue) EventName() string { return "appointments.outbox_due" }

// WorkflowEventNames lists the events forwarded to the audit stream.
var WorkflowEventNames = []string{
	AppointmentCancelled{}.EventName(),
	TechnicianReassigned{}.EventName(),
	AppointmentStatusOverridden{}.EventName(),
}
