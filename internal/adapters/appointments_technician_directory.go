package adapters

import (
	"context"

	apptsvc "repair_ops_backend/internal/appointments/service"
	"repair_ops_backend/internal/technicians/service"

	"github.com/google/uuid"
)

// TechnicianEligibilityChecker is the technician lookup the directory adapter needs.
type TechnicianEligibilityChecker interface {
	CheckEligibility(ctx context.Context, id uuid.UUID, serviceCategory string) (*service.Eligibility, error)
}

// AppointmentsTechnicianDirectory adapts the technicians module for reassignment checks.
type AppointmentsTechnicianDirectory struct {
	technicians TechnicianEligibilityChecker
}

func NewAppointmentsTechnicianDirectory(technicians TechnicianEligibilityChecker) *AppointmentsTechnicianDirectory {
	return &AppointmentsTechnicianDirectory{technicians: technicians}
}

func (a *AppointmentsTechnicianDirectory) CheckEligibility(ctx context.Context, technicianID uuid.UUID, serviceCategory string) (*apptsvc.TechnicianProfile, error) {
	result, err := a.technicians.CheckEligibility(ctx, technicianID, serviceCategory)
	if err != nil {
		return nil, err
	}
	tech := result.Technician
	return &apptsvc.TechnicianProfile{
		ID:       tech.ID,
		Name:     tech.Name,
		Phone:    tech.Phone,
		Email:    tech.Email,
		Eligible: result.Eligible(),
		Reasons:  result.Reasons,
	}, nil
}

var _ apptsvc.TechnicianDirectory = (*AppointmentsTechnicianDirectory)(nil)
