package repository

import (
	"context"
	"errors"
	"fmt"

	"repair_ops_backend/internal/technicians/domain"
	"repair_ops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads technicians from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new technicians repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID loads one technician.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error) {
	var t domain.Technician
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, skills, is_active, is_available
		FROM technicians
		WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Phone, &t.Email, &t.Skills, &t.IsActive, &t.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("technician not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get technician: %w", err)
	}
	return &t, nil
}
