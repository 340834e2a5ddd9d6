package service

import (
	"context"

	"repair_ops_backend/internal/technicians/domain"

	"github.com/google/uuid"
)

// Repository is the technician persistence used by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error)
}

// Eligibility is a technician together with the reasons it cannot take a job.
type Eligibility struct {
	Technician domain.Technician
	Reasons    []string
}

// Eligible reports whether no rule blocked the technician.
func (e Eligibility) Eligible() bool {
	return len(e.Reasons) == 0
}

// Service answers technician lookups for other modules.
type Service struct {
	repo Repository
}

// New creates a new technicians service
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckEligibility loads the technician and evaluates it against the service category.
func (s *Service) CheckEligibility(ctx context.Context, id uuid.UUID, serviceCategory string) (*Eligibility, error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Eligibility{Technician: *tech, Reasons: tech.IneligibilityReasons(serviceCategory)}, nil
}
