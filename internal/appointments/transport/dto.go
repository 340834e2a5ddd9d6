package transport

import (
	"time"

	"github.com/google/uuid"
)

// Refund statuses reported by the cancellation workflow
const (
	RefundStatusPending       = "PENDING"
	RefundStatusNotRequested  = "NOT_REQUESTED"
	RefundStatusNotApplicable = "NOT_APPLICABLE"
)

// PenaltyTypeCancellationStrike is the penalty recorded against a technician
// whose appointment was force-cancelled.
const PenaltyTypeCancellationStrike = "CANCELLATION_STRIKE"

// ListAppointmentsRequest is the query parameters for listing appointments
type ListAppointmentsRequest struct {
	Status        string `form:"status" validate:"omitempty,max=32"`
	TechnicianID  string `form:"technicianId" validate:"omitempty,uuid"`
	CustomerID    string `form:"customerId" validate:"omitempty,uuid"`
	FromDate      string `form:"fromDate" validate:"omitempty,datetime=2006-01-02"`
	ToDate        string `form:"toDate" validate:"omitempty,datetime=2006-01-02"`
	SearchKeyword string `form:"searchKeyword" validate:"max=200"`
	HasIssues     *bool  `form:"hasIssues"`
	Page          int    `form:"page"`
	PageSize      int    `form:"pageSize"`
}

// CancelAppointmentRequest is the request body for force-cancelling an appointment
type CancelAppointmentRequest struct {
	Reason             string `json:"reason" validate:"required,max=1000"`
	RefundAmount       *int64 `json:"refundAmount,omitempty" validate:"omitempty,min=0"`
	NotifyCustomer     *bool  `json:"notifyCustomer,omitempty"`
	NotifyTechnician   *bool  `json:"notifyTechnician,omitempty"`
	PenalizeTechnician *bool  `json:"penalizeTechnician,omitempty"`
}

// ReassignTechnicianRequest is the request body for moving an appointment to another technician
type ReassignTechnicianRequest struct {
	NewTechnicianID     uuid.UUID `json:"newTechnicianId" validate:"required"`
	Reason              string    `json:"reason" validate:"required,max=1000"`
	NotifyOldTechnician *bool     `json:"notifyOldTechnician,omitempty"`
	NotifyNewTechnician *bool     `json:"notifyNewTechnician,omitempty"`
	NotifyCustomer      *bool     `json:"notifyCustomer,omitempty"`
	AdjustPrice         bool      `json:"adjustPrice"`
	NewEstimatedCost    *int64    `json:"newEstimatedCost,omitempty" validate:"omitempty,min=0"`
}

// OverrideStatusRequest is the request body for forcing an appointment status
type OverrideStatusRequest struct {
	NewStatus      string `json:"newStatus" validate:"required,max=32"`
	Reason         string `json:"reason" validate:"required,max=1000"`
	SkipValidation bool   `json:"skipValidation"`
}

// PartyResponse is a customer or technician reference
type PartyResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone *string   `json:"phone,omitempty"`
	Email *string   `json:"email,omitempty"`
}

// AppointmentResponse is one appointment with its derived issue flags
type AppointmentResponse struct {
	ID                    uuid.UUID     `json:"id"`
	OfferID               uuid.UUID     `json:"offerId"`
	CurrentOfferID        uuid.UUID     `json:"currentOfferId"`
	ServiceRequestID      uuid.UUID     `json:"serviceRequestId"`
	ServiceCategory       string        `json:"serviceCategory"`
	Customer              PartyResponse `json:"customer"`
	Technician            PartyResponse `json:"technician"`
	ScheduledDate         string        `json:"scheduledDate"`
	ActualStartAt         *time.Time    `json:"actualStartAt,omitempty"`
	ActualEndAt           *time.Time    `json:"actualEndAt,omitempty"`
	Status                string        `json:"status"`
	EstimatedCost         int64         `json:"estimatedCost"`
	FinalCost             *int64        `json:"finalCost,omitempty"`
	PriceAdjustmentReason *string       `json:"priceAdjustmentReason,omitempty"`
	HasPayment            bool          `json:"hasPayment"`
	PaymentStatus         *string       `json:"paymentStatus,omitempty"`
	IsDisputed            bool          `json:"isDisputed"`
	LastGPSUpdateAt       *time.Time    `json:"lastGpsUpdateAt,omitempty"`
	MediaCount            int           `json:"mediaCount"`
	Issues                []string      `json:"issues"`
	CancelledBy           *uuid.UUID    `json:"cancelledBy,omitempty"`
	CancelledAt           *time.Time    `json:"cancelledAt,omitempty"`
	CancelReason          *string       `json:"cancelReason,omitempty"`
	Version               int           `json:"version"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

// Pagination describes the page returned by a list call
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

// AppointmentListResponse is the paginated list response
type AppointmentListResponse struct {
	Items      []AppointmentResponse `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

type TimelineEntryResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	Note      *string   `json:"note,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MediaResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	ContentType string    `json:"contentType"`
	URL         *string   `json:"url,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type NoteResponse struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GPSLogResponse struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recordedAt"`
}

type PaymentResponse struct {
	ID     uuid.UUID  `json:"id"`
	Amount int64      `json:"amount"`
	Method string     `json:"method"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

type DisputeResponse struct {
	ID        uuid.UUID `json:"id"`
	RaisedBy  uuid.UUID `json:"raisedBy"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivityEntryResponse is one audit entry with its rendered diff
type ActivityEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	PerformedBy uuid.UUID `json:"performedBy"`
	OldValue    string    `json:"oldValue"`
	NewValue    string    `json:"newValue"`
	Diff        string    `json:"diff"`
	// StatusChange is true when OldValue and NewValue are statuses.
	StatusChange bool           `json:"statusChange"`
	Reason       string         `json:"reason"`
	Severity     string         `json:"severity"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AppointmentDetailResponse is the full detail view of one appointment
type AppointmentDetailResponse struct {
	AppointmentResponse
	Timeline    []TimelineEntryResponse `json:"timeline"`
	Media       []MediaResponse         `json:"media"`
	Notes       []NoteResponse          `json:"notes"`
	GPSLogs     []GPSLogResponse        `json:"gpsLogs"`
	Payment     *PaymentResponse        `json:"payment"`
	Disputes    []DisputeResponse       `json:"disputes"`
	ActivityLog []ActivityEntryResponse `json:"activityLog"`
}

type RefundOutcome struct {
	Refunded     bool   `json:"refunded"`
	Amount       *int64 `json:"amount"`
	RefundStatus string `json:"refundStatus"`
}

type PenaltyOutcome struct {
	Applied      bool       `json:"applied"`
	TechnicianID *uuid.UUID `json:"technicianId"`
	PenaltyType  *string    `json:"penaltyType"`
}

type CancelNotifications struct {
	CustomerNotified   bool `json:"customerNotified"`
	TechnicianNotified bool `json:"technicianNotified"`
}

// CancelAppointmentResponse describes the outcome of a force-cancel.
// Notifications, refunds and penalties are queued, not yet delivered.
type CancelAppointmentResponse struct {
	AppointmentID uuid.UUID           `json:"appointmentId"`
	Status        string              `json:"status"`
	CancelledBy   uuid.UUID           `json:"cancelledBy"`
	CancelledAt   time.Time           `json:"cancelledAt"`
	CancelReason  string              `json:"cancelReason"`
	Refund        RefundOutcome       `json:"refund"`
	Penalty       PenaltyOutcome      `json:"penalty"`
	Notifications CancelNotifications `json:"notifications"`
	Warnings      []string            `json:"warnings"`
}

type ReassignNotifications struct {
	OldTechnicianNotified bool `json:"oldTechnicianNotified"`
	NewTechnicianNotified bool `json:"newTechnicianNotified"`
	CustomerNotified      bool `json:"customerNotified"`
}

// ReassignTechnicianResponse describes the outcome of a reassignment
type ReassignTechnicianResponse struct {
	AppointmentID    uuid.UUID             `json:"appointmentId"`
	Status           string                `json:"status"`
	OldTechnician    PartyResponse         `json:"oldTechnician"`
	NewTechnician    PartyResponse         `json:"newTechnician"`
	NewOfferID       uuid.UUID             `json:"newOfferId"`
	PriceAdjusted    bool                  `json:"priceAdjusted"`
	NewEstimatedCost int64                 `json:"newEstimatedCost"`
	ReassignedBy     uuid.UUID             `json:"reassignedBy"`
	ReassignedAt     time.Time             `json:"reassignedAt"`
	Reason           string                `json:"reason"`
	Notifications    ReassignNotifications `json:"notifications"`
	Warnings         []string              `json:"warnings"`
}

// OverrideStatusResponse describes the outcome of a status override
type OverrideStatusResponse struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
	UpdatedBy     uuid.UUID `json:"updatedBy"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Reason        string    `json:"reason"`
	Severity      string    `json:"severity"`
	Warnings      []string  `json:"warnings"`
}

// TransitionRejectedDetails is attached to INVALID_TRANSITION errors
type TransitionRejectedDetails struct {
	Rule                    string   `json:"rule"`
	From                    string   `json:"from"`
	To                      string   `json:"to"`
	SkippedStates           []string `json:"skippedStates"`
	RetryWithSkipValidation bool     `json:"retryWithSkipValidation"`
}
