package service

import (
	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/platform/phone"
)

func toPartyResponse(p domain.Party) transport.PartyResponse {
	return transport.PartyResponse{
		ID:    p.ID,
		Name:  p.Name,
		Phone: phone.NormalizePtr(p.Phone),
		Email: p.Email,
	}
}

func issueStrings(flags []domain.IssueFlag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

func toAppointmentResponse(a domain.Appointment, issues []domain.IssueFlag) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:                    a.ID,
		OfferID:               a.OfferID,
		CurrentOfferID:        a.CurrentOfferID,
		ServiceRequestID:      a.ServiceRequestID,
		ServiceCategory:       a.ServiceCategory,
		Customer:              toPartyResponse(a.Customer),
		Technician:            toPartyResponse(a.Technician),
		ScheduledDate:         a.ScheduledDate.Format(dateFormat),
		ActualStartAt:         a.ActualStartAt,
		ActualEndAt:           a.ActualEndAt,
		Status:                string(a.Status),
		EstimatedCost:         a.EstimatedCost,
		FinalCost:             a.FinalCost,
		PriceAdjustmentReason: a.PriceAdjustmentReason,
		HasPayment:            a.HasPayment,
		PaymentStatus:         a.PaymentStatus,
		IsDisputed:            a.IsDisputed,
		LastGPSUpdateAt:       a.LastGPSUpdateAt,
		MediaCount:            a.MediaCount,
		Issues:                issueStrings(issues),
		CancelledBy:           a.CancelledBy,
		CancelledAt:           a.CancelledAt,
		CancelReason:          a.CancelReason,
		Version:               a.Version,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func toTimelineResponses(entries []domain.TimelineEntry) []transport.TimelineEntryResponse {
	out := make([]transport.TimelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.TimelineEntryResponse{
			ID:        e.ID,
			Status:    string(e.Status),
			Note:      e.Note,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func toNoteResponses(notes []domain.Note) []transport.NoteResponse {
	out := make([]transport.NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, transport.NoteResponse{
			ID:         n.ID,
			AuthorID:   n.AuthorID,
			AuthorName: n.AuthorName,
			Body:       n.Body,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}

func toGPSLogResponses(logs []domain.GPSLog) []transport.GPSLogResponse {
	out := make([]transport.GPSLogResponse, 0, len(logs))
	for _, g := range logs {
		out = append(out, transport.GPSLogResponse{Latitude: g.Latitude, Longitude: g.Longitude, RecordedAt: g.RecordedAt})
	}
	return out
}

func toPaymentResponse(p *domain.Payment) *transport.PaymentResponse {
	if p == nil {
		return nil
	}
	return &transport.PaymentResponse{ID: p.ID, Amount: p.Amount, Method: p.Method, Status: p.Status, PaidAt: p.PaidAt}
}

func toDisputeResponses(disputes []domain.Dispute) []transport.DisputeResponse {
	out := make([]transport.DisputeResponse, 0, len(disputes))
	for _, d := range disputes {
		out = append(out, transport.DisputeResponse{
			ID:        d.ID,
			RaisedBy:  d.RaisedBy,
			Reason:    d.Reason,
			Status:    d.Status,
			CreatedAt: d.CreatedAt,
		})
	}
	return out
}

func toActivityResponses(entries []domain.ActivityEntry) []transport.ActivityEntryResponse {
	out := make([]transport.ActivityEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.ActivityEntryResponse{
			ID:           e.ID,
			Action:       string(e.Action),
			PerformedBy:  e.PerformedBy,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			Diff:         e.Diff(),
			StatusChange: e.Action.IsStatusAffecting(),
			Reason:       e.Reason,
			Severity:     string(e.Severity),
			Metadata:     e.Metadata,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
