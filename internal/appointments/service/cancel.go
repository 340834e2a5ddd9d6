package service

import (
	"context"
	"fmt"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/internal/events"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	errRefundWithoutPayment = "refundAmount cannot be set for an appointment without payment"
	errRefundExceedsCharge  = "refundAmount exceeds the amount charged for this appointment"
	warnRefundNotRequested  = "appointment has a payment but no refundAmount was given; no refund was requested"
)

// decideRefund works out the refund outcome for a cancellation. A paid
// appointment without an explicit amount gets no refund and a warning.
func decideRefund(appt *domain.Appointment, amount *int64) (transport.RefundOutcome, []string, error) {
	requested := amount != nil && *amount > 0

	if !appt.HasPayment {
		if requested {
			return transport.RefundOutcome{}, nil, apperr.Validation(errRefundWithoutPayment).WithDetails([]map[string]string{
				{"field": "refundAmount", "message": errRefundWithoutPayment},
			})
		}
		return transport.RefundOutcome{RefundStatus: transport.RefundStatusNotApplicable}, nil, nil
	}

	if !requested {
		return transport.RefundOutcome{RefundStatus: transport.RefundStatusNotRequested}, []string{warnRefundNotRequested}, nil
	}

	if *amount > appt.ChargeableAmount() {
		return transport.RefundOutcome{}, nil, apperr.Validation(errRefundExceedsCharge).WithDetails([]map[string]string{
			{"field": "refundAmount", "message": fmt.Sprintf("%s (%d)", errRefundExceedsCharge, appt.ChargeableAmount())},
		})
	}

	value := *amount
	return transport.RefundOutcome{Refunded: true, Amount: &value, RefundStatus: transport.RefundStatusPending}, nil, nil
}

// Cancel force-cancels an appointment. Refund, penalty and notifications are
// queued in the same transaction as the status change.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, req transport.CancelAppointmentRequest) (*transport.CancelAppointmentResponse, error) {
	reason, err := cleanReason(req.Reason)
	if err != nil {
		return nil, err
	}
	notifyCustomer := boolOrDefault(req.NotifyCustomer, true)
	notifyTechnician := boolOrDefault(req.NotifyTechnician, true)
	penalize := boolOrDefault(req.PenalizeTechnician, false)

	var resp *transport.CancelAppointmentResponse
	var event events.AppointmentCancelled

	err = s.mutate(ctx, id, func(appt *domain.Appointment) (*repository.Mutation, error) {
		if guard := domain.GuardActive(appt.Status); !guard.Allowed {
			guard.To = domain.StatusCancelled
			return nil, s.rejectTransition(ctx, appt.ID, guard)
		}
		decision := domain.Validate(appt.Status, domain.StatusCancelled, actor.Role, false)
		if !decision.Allowed {
			return nil, s.rejectTransition(ctx, appt.ID, decision)
		}

		refund, warnings, err := decideRefund(appt, req.RefundAmount)
		if err != nil {
			return nil, err
		}
		warnings = append(decision.Warnings, warnings...)

		expectedVersion, previous := appt.Version, appt.Status
		technician := appt.Technician
		now := s.now()
		appt.EnterStatus(domain.StatusCancelled, actor.ID, reason, now)

		intents := make([]outbox.InsertParams, 0, 4)
		if refund.Refunded {
			intents = append(intents, outbox.InsertParams{
				ID:            uuid.New(),
				AppointmentID: appt.ID,
				Kind:          outbox.KindRefund,
				Template:      outbox.TemplateRefundRequest,
				Payload: outbox.RefundPayload{
					AppointmentID: appt.ID,
					CustomerID:    appt.Customer.ID,
					Amount:        *refund.Amount,
					Reason:        reason,
					RequestedBy:   actor.ID,
				},
				RunAt: now,
			})
		}

		penalty := transport.PenaltyOutcome{}
		if penalize {
			penaltyType := transport.PenaltyTypeCancellationStrike
			penalty = transport.PenaltyOutcome{Applied: true, TechnicianID: &technician.ID, PenaltyType: &penaltyType}
			intents = append(intents, outbox.InsertParams{
				ID:            uuid.New(),
				AppointmentID: appt.ID,
				Kind:          outbox.KindPenalty,
				Template:      outbox.TemplateTechnicianPenalty,
				Payload: outbox.PenaltyPayload{
					AppointmentID: appt.ID,
					TechnicianID:  technician.ID,
					PenaltyType:   penaltyType,
					Reason:        reason,
					IssuedBy:      actor.ID,
				},
				RunAt: now,
			})
		}

		data := map[string]string{
			"previousStatus": string(previous),
			"refundStatus":   refund.RefundStatus,
		}
		if notifyCustomer {
			intents = append(intents, notificationIntent(appt, outbox.TemplateAppointmentCancelled,
				recipientFor(outbox.RecipientCustomer, appt.Customer), reason, data, now))
		}
		if notifyTechnician {
			intents = append(intents, notificationIntent(appt, outbox.TemplateAppointmentCancelled,
				recipientFor(outbox.RecipientTechnician, technician), reason, data, now))
		}

		metadata := map[string]any{
			"refundStatus":     refund.RefundStatus,
			"refunded":         refund.Refunded,
			"refundAmount":     refund.Amount,
			"penaltyApplied":   penalty.Applied,
			"notifyCustomer":   notifyCustomer,
			"notifyTechnician": notifyTechnician,
			"technicianId":     technician.ID.String(),
			"warnings":         nonNilWarnings(warnings),
		}

		resp = &transport.CancelAppointmentResponse{
			AppointmentID: appt.ID,
			Status:        string(appt.Status),
			CancelledBy:   actor.ID,
			CancelledAt:   now,
			CancelReason:  reason,
			Refund:        refund,
			Penalty:       penalty,
			Notifications: transport.CancelNotifications{
				CustomerNotified:   notifyCustomer,
				TechnicianNotified: notifyTechnician,
			},
			Warnings: nonNilWarnings(warnings),
		}
		event = events.AppointmentCancelled{
			BaseEvent:      events.NewBaseEvent(),
			AppointmentID:  appt.ID,
			ActorID:        actor.ID,
			TechnicianID:   technician.ID,
			PreviousStatus: string(previous),
			Reason:         reason,
			RefundStatus:   refund.RefundStatus,
			RefundAmount:   refund.Amount,
			PenaltyApplied: penalty.Applied,
		}

		return &repository.Mutation{
			ExpectedVersion: expectedVersion,
			ExpectedStatus:  previous,
			After:           *appt,
			Timeline:        newTimelineEntry(appt.ID, domain.StatusCancelled, reason, now),
			Activity: newActivityEntry(appt.ID, domain.ActionAppointmentCancelled, actor,
				string(previous), string(domain.StatusCancelled), reason,
				escalate(decision.Severity(), warnings), metadata, now),
			Intents: intents,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).AppointmentMutation(string(domain.ActionAppointmentCancelled), id.String(), actor.ID.String(), event.PreviousStatus, resp.Status)
	s.publish(ctx, event)

	return resp, nil
}
