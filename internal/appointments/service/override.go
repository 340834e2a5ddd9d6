package service

import (
	"context"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/internal/events"

	"github.com/google/uuid"
)

const errUnknownStatus = "newStatus is not a known appointment status"

// OverrideStatus forces an appointment into newStatus. Rejections carry the
// blocking rule so the operator can decide whether to retry with
// skipValidation.
func (s *Service) OverrideStatus(ctx context.Context, actor Actor, id uuid.UUID, req transport.OverrideStatusRequest) (*transport.OverrideStatusResponse, error) {
	reason, err := cleanReason(req.Reason)
	if err != nil {
		return nil, err
	}
	target, ok := domain.ParseStatus(req.NewStatus)
	if !ok {
		return nil, fieldError("newStatus", errUnknownStatus)
	}

	var resp *transport.OverrideStatusResponse
	var event events.AppointmentStatusOverridden

	err = s.mutate(ctx, id, func(appt *domain.Appointment) (*repository.Mutation, error) {
		decision := domain.Validate(appt.Status, target, actor.Role, req.SkipValidation)
		if !decision.Allowed {
			return nil, s.rejectTransition(ctx, appt.ID, decision)
		}

		expectedVersion, previous := appt.Version, appt.Status
		now := s.now()
		appt.EnterStatus(target, actor.ID, reason, now)

		warnings := nonNilWarnings(decision.Warnings)
		severity := decision.Severity()
		metadata := map[string]any{
			"skipValidation": req.SkipValidation,
			"skippedStates":  domain.StatusStrings(decision.SkippedStates),
			"exceptional":    decision.Exceptional,
			"warnings":       warnings,
		}

		resp = &transport.OverrideStatusResponse{
			AppointmentID: appt.ID,
			OldStatus:     string(previous),
			NewStatus:     string(target),
			UpdatedBy:     actor.ID,
			UpdatedAt:     now,
			Reason:        reason,
			Severity:      string(severity),
			Warnings:      warnings,
		}
		event = events.AppointmentStatusOverridden{
			BaseEvent:      events.NewBaseEvent(),
			AppointmentID:  appt.ID,
			ActorID:        actor.ID,
			OldStatus:      string(previous),
			NewStatus:      string(target),
			SkipValidation: req.SkipValidation,
			Severity:       string(severity),
			Warnings:       warnings,
			Reason:         reason,
		}

		return &repository.Mutation{
			ExpectedVersion: expectedVersion,
			ExpectedStatus:  previous,
			After:           *appt,
			Timeline:        newTimelineEntry(appt.ID, target, reason, now),
			Activity: newActivityEntry(appt.ID, domain.ActionStatusOverridden, actor,
				string(previous), string(target), reason, severity, metadata, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).AppointmentMutation(string(domain.ActionStatusOverridden), id.String(), actor.ID.String(), resp.OldStatus, resp.NewStatus)
	s.publish(ctx, event)

	return resp, nil
}
