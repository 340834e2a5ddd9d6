// Package technicians provides the technician directory used by other modules.
// It has no HTTP surface of its own.
package technicians

import (
	"repair_ops_backend/internal/technicians/repository"
	"repair_ops_backend/internal/technicians/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the technicians domain module
type Module struct {
	service *service.Service
}

// NewModule creates a new technicians module
func NewModule(pool *pgxpool.Pool) *Module {
	return &Module{service: service.New(repository.New(pool))}
}

// Service returns the technician service for cross-module adapters
func (m *Module) Service() *service.Service {
	return m.service
}
