package service

import (
	"context"
	"fmt"
	"strconv"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/internal/events"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	errTechnicianRequired      = "newTechnicianId is required"
	errSameTechnician          = "newTechnicianId must differ from the current technician"
	errAdjustPriceNeedsCost    = "newEstimatedCost must be greater than 0 when adjustPrice is set"
	errCostWithoutAdjustPrice  = "newEstimatedCost requires adjustPrice"
	errTechnicianNotEligible   = "technician is not eligible for this appointment"
	errTechnicianDirectoryDown = "technician directory is unavailable"
)

func fieldError(field, message string) *apperr.Error {
	return apperr.Validation(message).WithDetails([]map[string]string{
		{"field": field, "message": message},
	})
}

func validateReassignInput(req transport.ReassignTechnicianRequest) error {
	if req.NewTechnicianID == uuid.Nil {
		return fieldError("newTechnicianId", errTechnicianRequired)
	}
	if req.AdjustPrice {
		if req.NewEstimatedCost == nil || *req.NewEstimatedCost <= 0 {
			return fieldError("newEstimatedCost", errAdjustPriceNeedsCost)
		}
	} else if req.NewEstimatedCost != nil {
		return fieldError("newEstimatedCost", errCostWithoutAdjustPrice)
	}
	return nil
}

// lookupTechnician asks the directory about the candidate. Lookup failures
// other than not-found surface as collaborator errors.
func (s *Service) lookupTechnician(ctx context.Context, technicianID uuid.UUID, category string) (*TechnicianProfile, error) {
	profile, err := s.directory.CheckEligibility(ctx, technicianID, category)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		return nil, apperr.Unavailable(errTechnicianDirectoryDown, err)
	}
	if !profile.Eligible {
		return nil, apperr.Validation(errTechnicianNotEligible).WithDetails(map[string]any{
			"technicianId": technicianID,
			"reasons":      profile.Reasons,
		})
	}
	return profile, nil
}

// Reassign moves an appointment to another technician under a new offer.
// The status is kept; on-site statuses produce an operator warning.
func (s *Service) Reassign(ctx context.Context, actor Actor, id uuid.UUID, req transport.ReassignTechnicianRequest) (*transport.ReassignTechnicianResponse, error) {
	reason, err := cleanReason(req.Reason)
	if err != nil {
		return nil, err
	}
	if err := validateReassignInput(req); err != nil {
		return nil, err
	}
	notifyOld := boolOrDefault(req.NotifyOldTechnician, true)
	notifyNew := boolOrDefault(req.NotifyNewTechnician, true)
	notifyCustomer := boolOrDefault(req.NotifyCustomer, true)

	var resp *transport.ReassignTechnicianResponse
	var event events.TechnicianReassigned

	err = s.mutate(ctx, id, func(appt *domain.Appointment) (*repository.Mutation, error) {
		if guard := domain.GuardActive(appt.Status); !guard.Allowed {
			return nil, s.rejectTransition(ctx, appt.ID, guard)
		}
		if appt.Technician.ID == req.NewTechnicianID {
			return nil, fieldError("newTechnicianId", errSameTechnician)
		}

		profile, err := s.lookupTechnician(ctx, req.NewTechnicianID, appt.ServiceCategory)
		if err != nil {
			return nil, err
		}

		expectedVersion := appt.Version
		oldTechnician := appt.Technician
		oldOfferID := appt.CurrentOfferID
		oldEstimate := appt.EstimatedCost
		now := s.now()

		var warnings []string
		if appt.Status.IsOnSite() {
			warnings = append(warnings, fmt.Sprintf(
				"appointment is %s with the previous technician; confirm the new technician takes over the work in progress", appt.Status))
		}

		if req.AdjustPrice {
			appt.EstimatedCost = *req.NewEstimatedCost
			if appt.FinalCost != nil && !domain.HasAdjustmentReason(appt.PriceAdjustmentReason) {
				realigned := appt.EstimatedCost
				appt.FinalCost = &realigned
			}
		}

		offer := domain.Offer{
			ID:                uuid.New(),
			ServiceRequestID:  appt.ServiceRequestID,
			TechnicianID:      profile.ID,
			EstimatedCost:     appt.EstimatedCost,
			Status:            domain.OfferStatusAccepted,
			SupersedesOfferID: &oldOfferID,
			CreatedAt:         now,
		}
		appt.CurrentOfferID = offer.ID
		appt.Technician = domain.Party{ID: profile.ID, Name: profile.Name, Phone: profile.Phone, Email: profile.Email}
		appt.UpdatedAt = now

		data := map[string]string{
			"oldTechnicianName": oldTechnician.Name,
			"newTechnicianName": profile.Name,
			"status":            string(appt.Status),
		}
		if req.AdjustPrice {
			data["newEstimatedCost"] = strconv.FormatInt(appt.EstimatedCost, 10)
		}

		intents := make([]outbox.InsertParams, 0, 3)
		if notifyOld {
			intents = append(intents, notificationIntent(appt, outbox.TemplateTechnicianUnassigned,
				recipientFor(outbox.RecipientTechnician, oldTechnician), reason, data, now))
		}
		if notifyNew {
			intents = append(intents, notificationIntent(appt, outbox.TemplateTechnicianAssigned,
				recipientFor(outbox.RecipientTechnician, appt.Technician), reason, data, now))
		}
		if notifyCustomer {
			intents = append(intents, notificationIntent(appt, outbox.TemplateCustomerTechChanged,
				recipientFor(outbox.RecipientCustomer, appt.Customer), reason, data, now))
		}

		metadata := map[string]any{
			"oldTechnicianId":  oldTechnician.ID.String(),
			"newTechnicianId":  profile.ID.String(),
			"oldOfferId":       oldOfferID.String(),
			"newOfferId":       offer.ID.String(),
			"priceAdjusted":    req.AdjustPrice,
			"oldEstimatedCost": oldEstimate,
			"newEstimatedCost": appt.EstimatedCost,
			"status":           string(appt.Status),
			"warnings":         nonNilWarnings(warnings),
		}

		resp = &transport.ReassignTechnicianResponse{
			AppointmentID:    appt.ID,
			Status:           string(appt.Status),
			OldTechnician:    toPartyResponse(oldTechnician),
			NewTechnician:    toPartyResponse(appt.Technician),
			NewOfferID:       offer.ID,
			PriceAdjusted:    req.AdjustPrice,
			NewEstimatedCost: appt.EstimatedCost,
			ReassignedBy:     actor.ID,
			ReassignedAt:     now,
			Reason:           reason,
			Notifications: transport.ReassignNotifications{
				OldTechnicianNotified: notifyOld,
				NewTechnicianNotified: notifyNew,
				CustomerNotified:      notifyCustomer,
			},
			Warnings: nonNilWarnings(warnings),
		}
		event = events.TechnicianReassigned{
			BaseEvent:        events.NewBaseEvent(),
			AppointmentID:    appt.ID,
			ActorID:          actor.ID,
			OldTechnicianID:  oldTechnician.ID,
			NewTechnicianID:  profile.ID,
			NewOfferID:       offer.ID,
			Status:           string(appt.Status),
			PriceAdjusted:    req.AdjustPrice,
			NewEstimatedCost: appt.EstimatedCost,
			Reason:           reason,
		}

		return &repository.Mutation{
			ExpectedVersion: expectedVersion,
			ExpectedStatus:  appt.Status,
			After:           *appt,
			Offer:           &offer,
			Activity: newActivityEntry(appt.ID, domain.ActionTechnicianReassigned, actor,
				oldTechnician.ID.String(), profile.ID.String(), reason,
				escalate(domain.SeverityInfo, warnings), metadata, now),
			Intents: intents,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).AppointmentMutation(string(domain.ActionTechnicianReassigned), id.String(), actor.ID.String(),
		event.OldTechnicianID.String(), event.NewTechnicianID.String())
	s.publish(ctx, event)

	return resp, nil
}
