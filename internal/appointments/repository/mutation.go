package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/apperr"
	"repair_ops_backend/platform/db"

	"github.com/jackc/pgx/v5"
)

// CodeConcurrentModification is returned when the row changed under a workflow.
const CodeConcurrentModification = "CONCURRENT_MODIFICATION"

const concurrentModificationMsg = "appointment was modified concurrently; reload and retry"

// Mutation is one workflow's complete write set. It commits atomically:
// the aggregate update, its optional new offer, the timeline and activity
// rows, and every side-effect intent.
type Mutation struct {
	ExpectedVersion int
	ExpectedStatus  domain.Status
	After           domain.Appointment
	Offer           *domain.Offer
	Timeline        *domain.TimelineEntry
	Activity        domain.ActivityEntry
	Intents         []outbox.InsertParams
}

// ApplyMutation persists m, failing with a conflict if the stored row no
// longer matches the expected version and status.
func (r *Repository) ApplyMutation(ctx context.Context, m Mutation) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return applyMutation(ctx, tx, m)
	})
}

func applyMutation(ctx context.Context, q db.Querier, m Mutation) error {
	if m.Offer != nil {
		if err := insertOffer(ctx, q, *m.Offer); err != nil {
			return err
		}
	}

	if err := updateAppointment(ctx, q, m); err != nil {
		return err
	}

	if m.Timeline != nil {
		if err := insertTimeline(ctx, q, *m.Timeline); err != nil {
			return err
		}
	}

	if err := insertActivity(ctx, q, m.Activity); err != nil {
		return err
	}

	for _, intent := range m.Intents {
		if _, err := outbox.Insert(ctx, q, intent); err != nil {
			return fmt.Errorf("failed to enqueue %s intent: %w", intent.Template, err)
		}
	}

	return nil
}

func insertOffer(ctx context.Context, q db.Querier, o domain.Offer) error {
	_, err := q.Exec(ctx, `
		INSERT INTO offers (id, service_request_id, technician_id, estimated_cost, status, supersedes_offer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.ServiceRequestID, o.TechnicianID, o.EstimatedCost, o.Status, o.SupersedesOfferID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func updateAppointment(ctx context.Context, q db.Querier, m Mutation) error {
	a := m.After
	tag, err := q.Exec(ctx, `
		UPDATE appointments SET
			current_offer_id = $4,
			technician_id = $5,
			status = $6,
			actual_start_at = $7,
			actual_end_at = $8,
			estimated_cost = $9,
			final_cost = $10,
			price_adjustment_reason = $11,
			payment_status = $12,
			is_disputed = $13,
			cancelled_by = $14,
			cancelled_at = $15,
			cancel_reason = $16,
			version = version + 1,
			updated_at = $17
		WHERE id = $1 AND version = $2 AND status = $3
	`,
		a.ID, m.ExpectedVersion, string(m.ExpectedStatus),
		a.CurrentOfferID, a.Technician.ID, string(a.Status),
		a.ActualStartAt, a.ActualEndAt,
		a.EstimatedCost, a.FinalCost, a.PriceAdjustmentReason, a.PaymentStatus,
		a.IsDisputed, a.CancelledBy, a.CancelledAt, a.CancelReason,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(concurrentModificationMsg).
			WithCode(CodeConcurrentModification).
			WithOp("update appointment")
	}
	return nil
}

func insertTimeline(ctx context.Context, q db.Querier, e domain.TimelineEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO appointment_timeline (id, appointment_id, status, note, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.AppointmentID, string(e.Status), e.Note, e.Latitude, e.Longitude, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}
	return nil
}

func insertActivity(ctx context.Context, q db.Querier, e domain.ActivityEntry) error {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode activity metadata: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO appointment_activity_log (id, appointment_id, action, performed_by, old_value, new_value, reason, severity, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.AppointmentID, string(e.Action), e.PerformedBy, e.OldValue, e.NewValue, e.Reason, string(e.Severity), metadataJSON, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}
