package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"repair_ops_backend/internal/appointments/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListTimeline returns the status timeline in chronological order
func (r *Repository) ListTimeline(ctx context.Context, appointmentID uuid.UUID) ([]domain.TimelineEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, status, note, latitude, longitude, created_at
		FROM appointment_timeline
		WHERE appointment_id = $1
		ORDER BY created_at ASC, id ASC
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.TimelineEntry, 0)
	for rows.Next() {
		var entry domain.TimelineEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.AppointmentID, &status, &entry.Note, &entry.Latitude, &entry.Longitude, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entry.Status = domain.Status(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListMedia returns the uploaded media for an appointment
func (r *Repository) ListMedia(ctx context.Context, appointmentID uuid.UUID) ([]domain.Media, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, object_key, content_type, uploaded_at
		FROM appointment_media
		WHERE appointment_id = $1
		ORDER BY uploaded_at ASC
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	media := make([]domain.Media, 0)
	for rows.Next() {
		var m domain.Media
		if err := rows.Scan(&m.ID, &m.Kind, &m.ObjectKey, &m.ContentType, &m.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// ListNotes returns the notes for an appointment, newest first
func (r *Repository) ListNotes(ctx context.Context, appointmentID uuid.UUID) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, author_id, author_name, body, created_at
		FROM appointment_notes
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.AuthorName, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListGPSLogs returns the most recent technician positions
func (r *Repository) ListGPSLogs(ctx context.Context, appointmentID uuid.UUID, limit int) ([]domain.GPSLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, latitude, longitude, recorded_at
		FROM appointment_gps_logs
		WHERE appointment_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, appointmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list gps logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.GPSLog, 0)
	for rows.Next() {
		var g domain.GPSLog
		if err := rows.Scan(&g.ID, &g.Latitude, &g.Longitude, &g.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gps log: %w", err)
		}
		logs = append(logs, g)
	}
	return logs, rows.Err()
}

// GetPayment returns the payment record, or nil when none exists
func (r *Repository) GetPayment(ctx context.Context, appointmentID uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, amount, method, status, paid_at
		FROM appointment_payments
		WHERE appointment_id = $1
	`, appointmentID).Scan(&p.ID, &p.Amount, &p.Method, &p.Status, &p.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

// ListDisputes returns disputes raised against an appointment
func (r *Repository) ListDisputes(ctx context.Context, appointmentID uuid.UUID) ([]domain.Dispute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, raised_by, reason, status, created_at
		FROM appointment_disputes
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	disputes := make([]domain.Dispute, 0)
	for rows.Next() {
		var d domain.Dispute
		if err := rows.Scan(&d.ID, &d.RaisedBy, &d.Reason, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// ListActivity returns the audit trail, newest first
func (r *Repository) ListActivity(ctx context.Context, appointmentID uuid.UUID) ([]domain.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, action, performed_by, old_value, new_value, reason, severity, metadata, created_at
		FROM appointment_activity_log
		WHERE appointment_id = $1
		ORDER BY created_at DESC, id DESC
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0)
	for rows.Next() {
		var e domain.ActivityEntry
		var action, severity string
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.AppointmentID, &action, &e.PerformedBy, &e.OldValue, &e.NewValue, &e.Reason, &severity, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		e.Action = domain.ActivityAction(action)
		e.Severity = domain.Severity(severity)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode activity metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
