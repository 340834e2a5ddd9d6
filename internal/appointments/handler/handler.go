package handler

import (
	"context"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/service"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/platform/httpkit"
	"repair_ops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid appointment id"
)

// AppointmentService is the subset of the service used over HTTP.
type AppointmentService interface {
	List(ctx context.Context, req transport.ListAppointmentsRequest) (*transport.AppointmentListResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*transport.AppointmentDetailResponse, error)
	Cancel(ctx context.Context, actor service.Actor, id uuid.UUID, req transport.CancelAppointmentRequest) (*transport.CancelAppointmentResponse, error)
	Reassign(ctx context.Context, actor service.Actor, id uuid.UUID, req transport.ReassignTechnicianRequest) (*transport.ReassignTechnicianResponse, error)
	OverrideStatus(ctx context.Context, actor service.Actor, id uuid.UUID, req transport.OverrideStatusRequest) (*transport.OverrideStatusResponse, error)
}

// Handler handles HTTP requests for the appointment admin console
type Handler struct {
	svc AppointmentService
	val *validator.Validator
}

// New creates a new appointments handler
func New(svc AppointmentService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the appointment routes. The mutating routes run
// behind the optional extra middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mutation ...gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)

	writes := rg.Group("", mutation...)
	writes.PATCH("/:id/cancel", h.Cancel)
	writes.PATCH("/:id/reassign", h.Reassign)
	writes.PATCH("/:id/status", h.OverrideStatus)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func actorFrom(identity httpkit.Identity) service.Actor {
	return service.Actor{ID: identity.UserID(), Role: domain.Role(identity.PrimaryRole())}
}

// List handles GET /api/v1/admin/appointments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/admin/appointments/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Cancel handles PATCH /api/v1/admin/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), actorFrom(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Reassign handles PATCH /api/v1/admin/appointments/:id/reassign
func (h *Handler) Reassign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ReassignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Reassign(c.Request.Context(), actorFrom(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// OverrideStatus handles PATCH /api/v1/admin/appointments/:id/status
func (h *Handler) OverrideStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.OverrideStatus(c.Request.Context(), actorFrom(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
