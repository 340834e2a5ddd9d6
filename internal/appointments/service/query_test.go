package service

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestListNormalizesPaging(t *testing.T) {
	cases := []struct {
		page, pageSize         int
		wantPage, wantPageSize int
	}{
		{0, 0, 1, 20},
		{3, 50, 3, 50},
		{2, 500, 2, 100},
		{-1, -5, 1, 20},
		{math.MaxInt64 / 2, 20, maxPage, 20},
	}
	for _, tc := range cases {
		env := newTestEnv()
		resp, err := env.svc.List(context.Background(), transport.ListAppointmentsRequest{Page: tc.page, PageSize: tc.pageSize})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if env.store.listParams.Page != tc.wantPage || env.store.listParams.PageSize != tc.wantPageSize {
			t.Errorf("page %d/%d normalized to %d/%d, want %d/%d", tc.page, tc.pageSize,
				env.store.listParams.Page, env.store.listParams.PageSize, tc.wantPage, tc.wantPageSize)
		}
		if resp.Items == nil {
			t.Errorf("items must be an empty list, not null")
		}
	}
}

func TestListPassesFilters(t *testing.T) {
	env := newTestEnv()
	tech := uuid.New()
	hasIssues := true

	_, err := env.svc.List(context.Background(), transport.ListAppointmentsRequest{
		Status:        "en_route",
		TechnicianID:  tech.String(),
		FromDate:      "2026-03-01",
		ToDate:        "2026-03-31",
		SearchKeyword: "  Siti ",
		HasIssues:     &hasIssues,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	p := env.store.listParams
	if p.Status == nil || *p.Status != domain.StatusEnRoute {
		t.Fatalf("expected EN_ROUTE filter, got %v", p.Status)
	}
	if p.TechnicianID == nil || *p.TechnicianID != tech {
		t.Fatalf("expected technician filter")
	}
	if p.FromDate == nil || !p.FromDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected fromDate %v", p.FromDate)
	}
	if p.Search != "Siti" || p.HasIssues == nil || !*p.HasIssues {
		t.Fatalf("unexpected search/hasIssues %q %v", p.Search, p.HasIssues)
	}
	if !p.Now.Equal(fixedNow) || p.IssuePolicy != domain.DefaultIssuePolicy() {
		t.Fatalf("expected clock and issue policy to be forwarded")
	}
}

func TestListRejectsBadFilters(t *testing.T) {
	cases := []transport.ListAppointmentsRequest{
		{Status: "FINISHED"},
		{CustomerID: "not-a-uuid"},
		{FromDate: "03/01/2026"},
		{FromDate: "2026-03-10", ToDate: "2026-03-01"},
	}
	for _, req := range cases {
		env := newTestEnv()
		_, err := env.svc.List(context.Background(), req)
		requireAppErr(t, err, apperr.KindValidation, apperr.CodeValidation)
	}
}

func TestListDerivesIssuesPerItem(t *testing.T) {
	overdue := newAppointment(domain.StatusScheduled)
	overdue.ScheduledDate = fixedNow.AddDate(0, 0, -2)
	clean := newAppointment(domain.StatusScheduled)

	env := newTestEnv()
	env.store.listResult = &repository.ListResult{
		Items:      []domain.Appointment{overdue, clean},
		Total:      41,
		Page:       3,
		PageSize:   20,
		TotalPages: 3,
	}

	resp, err := env.svc.List(context.Background(), transport.ListAppointmentsRequest{Page: 3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(resp.Items[0].Issues, []string{"OVERDUE"}) {
		t.Fatalf("expected OVERDUE, got %v", resp.Items[0].Issues)
	}
	if len(resp.Items[1].Issues) != 0 {
		t.Fatalf("expected no issues, got %v", resp.Items[1].Issues)
	}
	want := transport.Pagination{CurrentPage: 3, PageSize: 20, TotalItems: 41, TotalPages: 3}
	if resp.Pagination != want {
		t.Fatalf("pagination = %+v, want %+v", resp.Pagination, want)
	}
	if resp.Items[0].Customer.Phone == nil || *resp.Items[0].Customer.Phone != "+6281234567890" {
		t.Fatalf("expected customer phone in E.164, got %v", resp.Items[0].Customer.Phone)
	}
}

type fakeDetails struct {
	payment *domain.Payment
	media   []domain.Media
	err     error
}

func (f fakeDetails) ListTimeline(context.Context, uuid.UUID) ([]domain.TimelineEntry, error) {
	return []domain.TimelineEntry{{ID: uuid.New(), Status: domain.StatusScheduled, CreatedAt: fixedNow}}, nil
}

func (f fakeDetails) ListMedia(context.Context, uuid.UUID) ([]domain.Media, error) {
	return f.media, nil
}

func (f fakeDetails) ListNotes(context.Context, uuid.UUID) ([]domain.Note, error) {
	return []domain.Note{}, nil
}

func (f fakeDetails) ListGPSLogs(_ context.Context, _ uuid.UUID, limit int) ([]domain.GPSLog, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	return []domain.GPSLog{{ID: uuid.New(), Latitude: -6.2, Longitude: 106.8, RecordedAt: fixedNow}}, nil
}

func (f fakeDetails) GetPayment(context.Context, uuid.UUID) (*domain.Payment, error) {
	return f.payment, nil
}

func (f fakeDetails) ListDisputes(context.Context, uuid.UUID) ([]domain.Dispute, error) {
	return []domain.Dispute{}, f.err
}

func (f fakeDetails) ListActivity(context.Context, uuid.UUID) ([]domain.ActivityEntry, error) {
	return []domain.ActivityEntry{{
		ID:       uuid.New(),
		Action:   domain.ActionStatusOverridden,
		OldValue: "SCHEDULED",
		NewValue: "EN_ROUTE",
		Severity: domain.SeverityInfo,
	}}, nil
}

type fakeSigner struct{}

func (fakeSigner) MediaURL(_ context.Context, key string) (string, error) {
	if key == "broken" {
		return "", errors.New("sign failed")
	}
	return "https://media.example.com/" + key, nil
}

func TestGetByIDLoadsDetail(t *testing.T) {
	appt := newAppointment(domain.StatusChecking)
	env := newTestEnv(appt)
	env.svc.details = fakeDetails{
		payment: &domain.Payment{ID: uuid.New(), Amount: 500000, Method: "transfer", Status: "PAID"},
		media: []domain.Media{
			{ID: uuid.New(), Kind: "photo", ObjectKey: "a/before.jpg", ContentType: "image/jpeg"},
			{ID: uuid.New(), Kind: "photo", ObjectKey: "broken", ContentType: "image/jpeg"},
		},
	}
	env.svc.media = fakeSigner{}

	resp, err := env.svc.GetByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if resp.ID != appt.ID || len(resp.Timeline) != 1 || len(resp.GPSLogs) != 1 {
		t.Fatalf("unexpected detail %+v", resp)
	}
	if resp.Payment == nil || resp.Payment.Amount != 500000 {
		t.Fatalf("expected payment, got %+v", resp.Payment)
	}
	if resp.Media[0].URL == nil || *resp.Media[0].URL != "https://media.example.com/a/before.jpg" {
		t.Fatalf("expected signed url, got %v", resp.Media[0].URL)
	}
	if resp.Media[1].URL != nil {
		t.Fatalf("failed signing must leave the url empty")
	}
	if resp.ActivityLog[0].Diff != "SCHEDULED → EN_ROUTE" || !resp.ActivityLog[0].StatusChange {
		t.Fatalf("unexpected activity entry %+v", resp.ActivityLog[0])
	}
	if resp.Notes == nil || resp.Disputes == nil {
		t.Fatalf("empty collections must serialize as lists")
	}
}

func TestGetByIDPropagatesLoaderErrors(t *testing.T) {
	appt := newAppointment(domain.StatusChecking)
	env := newTestEnv(appt)
	env.svc.details = fakeDetails{err: errors.New("db down")}

	if _, err := env.svc.GetByID(context.Background(), appt.ID); err == nil {
		t.Fatalf("expected loader error")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	env := newTestEnv()
	env.svc.details = fakeDetails{}
	_, err := env.svc.GetByID(context.Background(), uuid.New())
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeNotFound)
}
