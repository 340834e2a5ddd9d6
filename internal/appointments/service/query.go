package service

import (
	"context"
	"math"
	"strings"
	"time"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/platform/apperr"
	"repair_ops_backend/platform/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (page-1)*pageSize within a Postgres int4 OFFSET.
	maxPage         = math.MaxInt32 / maxPageSize
	detailGPSLimit  = 200
	errDateRange    = "fromDate must not be after toDate"
)

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateFormat, value)
	if err != nil {
		return nil, fieldError(field, field+" must be a date in YYYY-MM-DD format")
	}
	return &parsed, nil
}

func parseOptionalID(field, value string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fieldError(field, field+" must be a valid UUID")
	}
	return &id, nil
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

func (s *Service) listParams(req transport.ListAppointmentsRequest) (repository.ListParams, error) {
	page, pageSize := normalizePaging(req.Page, req.PageSize)
	params := repository.ListParams{
		Search:      strings.TrimSpace(req.SearchKeyword),
		HasIssues:   req.HasIssues,
		Now:         s.now(),
		IssuePolicy: s.issuePolicy,
		Page:        page,
		PageSize:    pageSize,
	}

	var err error
	if params.TechnicianID, err = parseOptionalID("technicianId", req.TechnicianID); err != nil {
		return params, err
	}
	if params.CustomerID, err = parseOptionalID("customerId", req.CustomerID); err != nil {
		return params, err
	}

	if strings.TrimSpace(req.Status) != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return params, fieldError("status", errUnknownStatus)
		}
		params.Status = &status
	}

	from, err := parseDate("fromDate", req.FromDate)
	if err != nil {
		return params, err
	}
	to, err := parseDate("toDate", req.ToDate)
	if err != nil {
		return params, err
	}
	if from != nil && to != nil && from.After(*to) {
		return params, apperr.Validation(errDateRange)
	}
	params.FromDate, params.ToDate = from, to

	return params, nil
}

// List returns one page of appointments, each with its derived issue flags.
func (s *Service) List(ctx context.Context, req transport.ListAppointmentsRequest) (*transport.AppointmentListResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "appointments.list")
	defer span.End()

	params, err := s.listParams(req)
	if err != nil {
		return nil, err
	}

	result, err := s.store.List(ctx, params)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("appointments.total", result.Total))

	items := make([]transport.AppointmentResponse, 0, len(result.Items))
	for _, appt := range result.Items {
		issues := domain.DeriveIssues(appt.IssueSnapshot(), params.Now, s.issuePolicy)
		items = append(items, toAppointmentResponse(appt, issues))
	}

	return &transport.AppointmentListResponse{
		Items: items,
		Pagination: transport.Pagination{
			CurrentPage: result.Page,
			PageSize:    result.PageSize,
			TotalItems:  result.Total,
			TotalPages:  result.TotalPages,
		},
	}, nil
}

// GetByID returns the full detail view. The related records are loaded
// concurrently and the first failure aborts the rest.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.AppointmentDetailResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "appointments.detail")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		timeline []domain.TimelineEntry
		media    []domain.Media
		notes    []domain.Note
		gpsLogs  []domain.GPSLog
		payment  *domain.Payment
		disputes []domain.Dispute
		activity []domain.ActivityEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { timeline, err = s.details.ListTimeline(gctx, id); return err })
	g.Go(func() (err error) { media, err = s.details.ListMedia(gctx, id); return err })
	g.Go(func() (err error) { notes, err = s.details.ListNotes(gctx, id); return err })
	g.Go(func() (err error) { gpsLogs, err = s.details.ListGPSLogs(gctx, id, detailGPSLimit); return err })
	g.Go(func() (err error) { payment, err = s.details.GetPayment(gctx, id); return err })
	g.Go(func() (err error) { disputes, err = s.details.ListDisputes(gctx, id); return err })
	g.Go(func() (err error) { activity, err = s.details.ListActivity(gctx, id); return err })
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	issues := domain.DeriveIssues(appt.IssueSnapshot(), s.now(), s.issuePolicy)

	return &transport.AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(*appt, issues),
		Timeline:            toTimelineResponses(timeline),
		Media:               s.toMediaResponses(ctx, media),
		Notes:               toNoteResponses(notes),
		GPSLogs:             toGPSLogResponses(gpsLogs),
		Payment:             toPaymentResponse(payment),
		Disputes:            toDisputeResponses(disputes),
		ActivityLog:         toActivityResponses(activity),
	}, nil
}

// toMediaResponses attaches download URLs when a signer is configured. A
// signing failure leaves that item without a URL.
func (s *Service) toMediaResponses(ctx context.Context, media []domain.Media) []transport.MediaResponse {
	out := make([]transport.MediaResponse, 0, len(media))
	for _, m := range media {
		item := transport.MediaResponse{
			ID:          m.ID,
			Kind:        m.Kind,
			ContentType: m.ContentType,
			UploadedAt:  m.UploadedAt,
		}
		if s.media != nil {
			url, err := s.media.MediaURL(ctx, m.ObjectKey)
			if err != nil {
				s.log.WithContext(ctx).Warn("failed to sign media url", "media_id", m.ID, "error", err)
			} else {
				item.URL = &url
			}
		}
		out = append(out, item)
	}
	return out
}
