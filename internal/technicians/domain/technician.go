// Package domain holds the technician model and its eligibility rules.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Ineligibility reasons.
const (
	ReasonInactive     = "technician is not active"
	ReasonUnavailable  = "technician is not available"
	ReasonMissingSkill = "technician lacks the required skill"
)

// Technician is a field technician who can be assigned to appointments.
type Technician struct {
	ID          uuid.UUID
	Name        string
	Phone       *string
	Email       *string
	Skills      []string
	IsActive    bool
	IsAvailable bool
}

// HasSkill reports whether the technician covers the service category.
// An empty category matches everyone.
func (t Technician) HasSkill(category string) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return true
	}
	for _, skill := range t.Skills {
		if strings.EqualFold(strings.TrimSpace(skill), category) {
			return true
		}
	}
	return false
}

// IneligibilityReasons lists why t cannot take work in category. An empty
// result means the technician is eligible.
func (t Technician) IneligibilityReasons(category string) []string {
	reasons := make([]string, 0, 3)
	if !t.IsActive {
		reasons = append(reasons, ReasonInactive)
	}
	if !t.IsAvailable {
		reasons = append(reasons, ReasonUnavailable)
	}
	if !t.HasSkill(category) {
		reasons = append(reasons, ReasonMissingSkill+": "+category)
	}
	return reasons
}
