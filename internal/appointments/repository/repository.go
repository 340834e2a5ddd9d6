package repository

import (
	"context"
	"errors"
	"fmt"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for appointments
type Repository struct {
	pool *pgxpool.Pool
}

const appointmentNotFoundMsg = "appointment not found"

// New creates a new appointments repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `a.id, a.offer_id, a.current_offer_id, a.service_request_id, a.service_category,
		a.customer_id, a.customer_name, a.customer_phone, a.customer_email,
		a.technician_id, t.name, t.phone, t.email,
		a.scheduled_date, a.actual_start_at, a.actual_end_at, a.status,
		a.estimated_cost, a.final_cost, a.price_adjustment_reason, a.has_payment, a.payment_status,
		a.is_disputed, a.last_gps_update_at,
		(SELECT COUNT(*) FROM appointment_media m WHERE m.appointment_id = a.id)::int AS media_count,
		a.cancelled_by, a.cancelled_at, a.cancel_reason, a.version, a.created_at, a.updated_at`

const appointmentFrom = `FROM appointments a
		JOIN technicians t ON t.id = a.technician_id`

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var appt domain.Appointment
	var status string
	err := row.Scan(
		&appt.ID, &appt.OfferID, &appt.CurrentOfferID, &appt.ServiceRequestID, &appt.ServiceCategory,
		&appt.Customer.ID, &appt.Customer.Name, &appt.Customer.Phone, &appt.Customer.Email,
		&appt.Technician.ID, &appt.Technician.Name, &appt.Technician.Phone, &appt.Technician.Email,
		&appt.ScheduledDate, &appt.ActualStartAt, &appt.ActualEndAt, &status,
		&appt.EstimatedCost, &appt.FinalCost, &appt.PriceAdjustmentReason, &appt.HasPayment, &appt.PaymentStatus,
		&appt.IsDisputed, &appt.LastGPSUpdateAt,
		&appt.MediaCount,
		&appt.CancelledBy, &appt.CancelledAt, &appt.CancelReason, &appt.Version, &appt.CreatedAt, &appt.UpdatedAt,
	)
	appt.Status = domain.Status(status)
	return appt, err
}

// GetByID retrieves an appointment by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` ` + appointmentFrom + ` WHERE a.id = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return &appt, nil
}
