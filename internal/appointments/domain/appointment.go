package domain

import (
	"time"

	"github.com/google/uuid"
)

// Party is a customer or technician reference embedded in an appointment.
type Party struct {
	ID    uuid.UUID
	Name  string
	Phone *string
	Email *string
}

// Appointment is the aggregate root. Workflows are its only writers.
type Appointment struct {
	ID               uuid.UUID
	OfferID          uuid.UUID
	CurrentOfferID   uuid.UUID
	ServiceRequestID uuid.UUID
	ServiceCategory  string
	Customer         Party
	Technician       Party
	ScheduledDate    time.Time
	ActualStartAt    *time.Time
	ActualEndAt      *time.Time
	Status           Status

	EstimatedCost         int64
	FinalCost             *int64
	PriceAdjustmentReason *string
	HasPayment            bool
	PaymentStatus         *string

	IsDisputed      bool
	LastGPSUpdateAt *time.Time
	MediaCount      int

	CancelledBy  *uuid.UUID
	CancelledAt  *time.Time
	CancelReason *string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IssueSnapshot returns the subset of fields the issue deriver reads.
func (a Appointment) IssueSnapshot() IssueSnapshot {
	return IssueSnapshot{
		Status:                a.Status,
		ScheduledDate:         a.ScheduledDate,
		LastGPSUpdateAt:       a.LastGPSUpdateAt,
		MediaCount:            a.MediaCount,
		EstimatedCost:         a.EstimatedCost,
		FinalCost:             a.FinalCost,
		PriceAdjustmentReason: a.PriceAdjustmentReason,
	}
}

// ChargeableAmount is the amount a refund may not exceed.
func (a Appointment) ChargeableAmount() int64 {
	if a.FinalCost != nil {
		return *a.FinalCost
	}
	return a.EstimatedCost
}

// EnterStatus moves the aggregate to status and stamps the fields tied to it.
// The caller has already validated the transition.
func (a *Appointment) EnterStatus(status Status, actorID uuid.UUID, reason string, now time.Time) {
	previous := a.Status
	a.Status = status
	a.UpdatedAt = now

	switch status {
	case StatusRepairing:
		if a.ActualStartAt == nil {
			a.ActualStartAt = timePtr(now)
		}
	case StatusRepaired:
		if a.ActualStartAt == nil {
			a.ActualStartAt = timePtr(now)
		}
		a.ActualEndAt = timePtr(now)
	case StatusDispute:
		a.IsDisputed = true
	case StatusCancelled:
		a.CancelledBy = &actorID
		a.CancelledAt = timePtr(now)
		a.CancelReason = &reason
	}

	if previous == StatusCancelled && status != StatusCancelled {
		a.CancelledBy = nil
		a.CancelledAt = nil
		a.CancelReason = nil
	}
	if previous == StatusRepaired && status != StatusRepaired {
		a.ActualEndAt = nil
	}
}

// Offer is a technician's accepted proposal for a service request.
type Offer struct {
	ID                uuid.UUID
	ServiceRequestID  uuid.UUID
	TechnicianID      uuid.UUID
	EstimatedCost     int64
	Status            string
	SupersedesOfferID *uuid.UUID
	CreatedAt         time.Time
}

// OfferStatusAccepted is the only status an offer created here carries.
const OfferStatusAccepted = "ACCEPTED"

// TimelineEntry records one status the appointment passed through.
type TimelineEntry struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Status        Status
	Note          *string
	Latitude      *float64
	Longitude     *float64
	CreatedAt     time.Time
}

func timePtr(t time.Time) *time.Time {
	return &t
}
