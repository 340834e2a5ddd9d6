package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repair_ops_backend/internal/appointments/domain"

	"github.com/google/uuid"
)

// ListParams defines the filters for listing appointments
type ListParams struct {
	Status       *domain.Status
	TechnicianID *uuid.UUID
	CustomerID   *uuid.UUID
	FromDate     *time.Time
	ToDate       *time.Time
	Search       string
	HasIssues    *bool
	Now          time.Time
	IssuePolicy  domain.IssuePolicy
	Page         int
	PageSize     int
}

// ListResult contains paginated appointment results
type ListResult struct {
	Items      []domain.Appointment
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// listQuery accumulates a WHERE clause and its positional arguments.
type listQuery struct {
	where strings.Builder
	args  []interface{}
}

func (q *listQuery) add(clause string, values ...interface{}) {
	placeholders := make([]interface{}, len(values))
	for i, v := range values {
		q.args = append(q.args, v)
		placeholders[i] = len(q.args)
	}
	q.where.WriteString(" AND ")
	q.where.WriteString(fmt.Sprintf(clause, placeholders...))
}

func buildListQuery(params ListParams) *listQuery {
	q := &listQuery{}
	q.where.WriteString(" WHERE 1=1")

	if params.Status != nil {
		q.add("a.status = $%d", string(*params.Status))
	}
	if params.TechnicianID != nil {
		q.add("a.technician_id = $%d", *params.TechnicianID)
	}
	if params.CustomerID != nil {
		q.add("a.customer_id = $%d", *params.CustomerID)
	}
	if params.FromDate != nil {
		q.add("a.scheduled_date >= $%d", *params.FromDate)
	}
	if params.ToDate != nil {
		q.add("a.scheduled_date <= $%d", *params.ToDate)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		q.add(
			"(a.customer_name ILIKE $%[1]d OR t.name ILIKE $%[1]d OR a.customer_phone ILIKE $%[1]d OR a.service_category ILIKE $%[1]d OR a.id::text ILIKE $%[1]d)",
			pattern,
		)
	}
	if params.HasIssues != nil {
		predicate := issuePredicate(q, params.Now, params.IssuePolicy)
		if *params.HasIssues {
			q.where.WriteString(" AND " + predicate)
		} else {
			q.where.WriteString(" AND NOT " + predicate)
		}
	}

	return q
}

// issuePredicate renders the issue-flag rules as one boolean SQL expression,
// appending its arguments to q. Each branch mirrors a DeriveIssues check.
func issuePredicate(q *listQuery, now time.Time, policy domain.IssuePolicy) string {
	q.args = append(q.args, domain.Today(now))
	todayArg := len(q.args)
	q.args = append(q.args, policy.GPSCutoff(now))
	cutoffArg := len(q.args)
	q.args = append(q.args, policy.PriceTolerance)
	toleranceArg := len(q.args)

	overdue := fmt.Sprintf("(a.scheduled_date < $%d AND a.status IN (%s))",
		todayArg, quoteStatuses(domain.OverdueStatuses))
	gpsMissing := fmt.Sprintf("(a.status IN (%s) AND (a.last_gps_update_at IS NULL OR a.last_gps_update_at < $%d))",
		quoteStatuses(domain.PresenceStatuses), cutoffArg)
	noMedia := fmt.Sprintf("(a.status IN (%s) AND NOT EXISTS (SELECT 1 FROM appointment_media m WHERE m.appointment_id = a.id))",
		quoteStatuses(domain.MediaDueStatuses))
	priceMismatch := fmt.Sprintf("(a.final_cost IS NOT NULL AND abs(a.final_cost - a.estimated_cost) > $%d AND COALESCE(btrim(a.price_adjustment_reason), '') = '')",
		toleranceArg)

	return "(" + strings.Join([]string{overdue, gpsMissing, noMedia, priceMismatch}, " OR ") + ")"
}

func quoteStatuses(statuses []domain.Status) string {
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = "'" + string(s) + "'"
	}
	return strings.Join(quoted, ", ")
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// List retrieves appointments with filtering and pagination
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	q := buildListQuery(params)
	baseQuery := appointmentFrom + q.where.String()

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.pool.QueryRow(ctx, countQuery, q.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	args := append(q.args, params.PageSize, offset)
	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY a.scheduled_date DESC, a.created_at DESC LIMIT $%d OFFSET $%d`,
		appointmentColumns, baseQuery, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Appointment, 0, params.PageSize)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}
