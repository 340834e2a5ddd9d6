// Package appointments provides the appointment administration module.
package appointments

import (
	"repair_ops_backend/internal/appointments/handler"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/service"
	"repair_ops_backend/internal/events"
	apphttp "repair_ops_backend/internal/http"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new appointments module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, directory service.TechnicianDirectory, eventBus events.Bus, log *logger.Logger, opts ...service.Option) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, repo, directory, eventBus, log, opts...)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/admin/appointments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appointments := ctx.Admin.Group("/appointments")
	if ctx.MutationRateLimiter != nil {
		m.handler.RegisterRoutes(appointments, ctx.MutationRateLimiter.RateLimit())
		return
	}
	m.handler.RegisterRoutes(appointments)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
