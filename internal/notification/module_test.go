package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"repair_ops_backend/internal/collaborators"
	"repair_ops_backend/internal/email"
	"repair_ops_backend/internal/events"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/logger"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	rec        outbox.Record
	getErr     error
	processing int
	succeeded  bool
	failed     string
	retryAt    time.Time
	retryErr   string
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	if s.getErr != nil {
		return outbox.Record{}, s.getErr
	}
	if id != s.rec.ID {
		return outbox.Record{}, errors.New("no rows")
	}
	return s.rec, nil
}

func (s *fakeStore) MarkProcessing(context.Context, uuid.UUID) error {
	s.processing++
	return nil
}

func (s *fakeStore) MarkSucceeded(context.Context, uuid.UUID) error {
	s.succeeded = true
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, _ uuid.UUID, lastError string) error {
	s.failed = lastError
	return nil
}

func (s *fakeStore) ScheduleRetry(_ context.Context, _ uuid.UUID, runAt time.Time, lastError string) error {
	s.retryAt, s.retryErr = runAt, lastError
	return nil
}

type recordingSender struct {
	email.NoopSender
	calls []string
	last  email.AppointmentEmail
	err   error
}

func (s *recordingSender) SendAppointmentCancelledEmail(_ context.Context, msg email.AppointmentEmail) error {
	s.calls, s.last = append(s.calls, "cancelled"), msg
	return s.err
}

func (s *recordingSender) SendTechnicianAssignedEmail(_ context.Context, msg email.AppointmentEmail) error {
	s.calls, s.last = append(s.calls, "assigned"), msg
	return s.err
}

type fakeCollaborators struct {
	refundKey  uuid.UUID
	refund     collaborators.RefundRequest
	penaltyKey uuid.UUID
	penalty    collaborators.PenaltyRequest
	err        error
}

func (f *fakeCollaborators) RequestRefund(_ context.Context, key uuid.UUID, req collaborators.RefundRequest) error {
	f.refundKey, f.refund = key, req
	return f.err
}

func (f *fakeCollaborators) IssuePenalty(_ context.Context, key uuid.UUID, req collaborators.PenaltyRequest) error {
	f.penaltyKey, f.penalty = key, req
	return f.err
}

func newRecord(t *testing.T, kind outbox.Kind, template string, payload any, attempts int) outbox.Record {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.Record{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		Kind:          kind,
		Template:      template,
		Payload:       raw,
		Status:        outbox.StatusEnqueued,
		Attempts:      attempts,
	}
}

func newTestModule(store *fakeStore, sender email.Sender) (*Module, *fakeCollaborators) {
	m := New(store, sender, logger.New("development"))
	m.now = func() time.Time { return testNow }
	collab := &fakeCollaborators{}
	m.SetRefundRequester(collab)
	m.SetPenaltyIssuer(collab)
	return m, collab
}

func dueEvent(rec outbox.Record) events.AppointmentOutboxDue {
	return events.AppointmentOutboxDue{
		BaseEvent:     events.NewBaseEvent(),
		OutboxID:      rec.ID,
		AppointmentID: rec.AppointmentID,
		Kind:          string(rec.Kind),
		Template:      rec.Template,
		Payload:       rec.Payload,
	}
}

func TestNotificationSendsTemplateEmail(t *testing.T) {
	addr := "siti@example.com"
	rec := newRecord(t, outbox.KindNotification, outbox.TemplateAppointmentCancelled, outbox.NotificationPayload{
		AppointmentID: uuid.New(),
		Recipient:     outbox.Recipient{Role: outbox.RecipientCustomer, ID: uuid.New(), Name: "Siti", Email: &addr},
		ScheduledDate: "2026-03-20",
		Reason:        "Customer asked to cancel",
		Data:          map[string]string{"refundStatus": "PENDING"},
	}, 0)
	store := &fakeStore{rec: rec}
	sender := &recordingSender{}
	m, _ := newTestModule(store, sender)

	if err := m.Handle(context.Background(), dueEvent(rec)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0] != "cancelled" {
		t.Fatalf("expected cancelled email, got %v", sender.calls)
	}
	if sender.last.ToEmail != addr || sender.last.Details["refundStatus"] != "PENDING" {
		t.Fatalf("unexpected email %+v", sender.last)
	}
	if store.processing != 1 || !store.succeeded {
		t.Fatalf("expected processing then succeeded, got %+v", store)
	}
}

func TestNotificationWithoutEmailSucceeds(t *testing.T) {
	rec := newRecord(t, outbox.KindNotification, outbox.TemplateTechnicianAssigned, outbox.NotificationPayload{
		Recipient: outbox.Recipient{Role: outbox.RecipientTechnician, ID: uuid.New(), Name: "Dewi"},
	}, 0)
	store := &fakeStore{rec: rec}
	sender := &recordingSender{}
	m, _ := newTestModule(store, sender)

	if err := m.Handle(context.Background(), dueEvent(rec)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(sender.calls) != 0 || !store.succeeded {
		t.Fatalf("expected no send and success, calls=%v store=%+v", sender.calls, store)
	}
}

func TestSendFailureSchedulesRetry(t *testing.T) {
	addr := "dewi@example.com"
	rec := newRecord(t, outbox.KindNotification, outbox.TemplateTechnicianAssigned, outbox.NotificationPayload{
		Recipient: outbox.Recipient{Role: outbox.RecipientTechnician, Email: &addr},
	}, 2)
	store := &fakeStore{rec: rec}
	m, _ := newTestModule(store, &recordingSender{err: errors.New("smtp send: connection refused")})

	if err := m.Handle(context.Background(), dueEvent(rec)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if store.succeeded || store.failed != "" {
		t.Fatalf("expected retry only, got %+v", store)
	}
	if want := testNow.Add(4 * time.Minute); !store.retryAt.Equal(want) {
		t.Fatalf("retryAt = %v, want %v", store.retryAt, want)
	}
}

func TestSendFailureExhaustsRetries(t *testing.T) {
	addr := "dewi@example.com"
	rec := newRecord(t, outbox.KindNotification, outbox.TemplateTechnicianAssigned, outbox.NotificationPayload{
		Recipient: outbox.Recipient{Email: &addr},
	}, maxOutboxRetryAttempts-1)
	store := &fakeStore{rec: rec}
	m, _ := newTestModule(store, &recordingSender{err: errors.New("smtp down")})

	_ = m.Handle(context.Background(), dueEvent(rec))
	if store.failed != "smtp down" || !store.retryAt.IsZero() {
		t.Fatalf("expected failed without retry, got %+v", store)
	}
}

func TestRefundUsesOutboxIDAsIdempotencyKey(t *testing.T) {
	payload := outbox.RefundPayload{AppointmentID: uuid.New(), CustomerID: uuid.New(), Amount: 150000, Reason: "cancelled", RequestedBy: uuid.New()}
	rec := newRecord(t, outbox.KindRefund, outbox.TemplateRefundRequest, payload, 0)
	store := &fakeStore{rec: rec}
	m, collab := newTestModule(store, nil)

	if err := m.Handle(context.Background(), dueEvent(rec)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if collab.refundKey != rec.ID || collab.refund.Amount != 150000 || collab.refund.CustomerID != payload.CustomerID {
		t.Fatalf("unexpected refund call key=%s req=%+v", collab.refundKey, collab.refund)
	}
	if !store.succeeded {
		t.Fatalf("expected succeeded")
	}
}

func TestPenaltyRejectedIsPermanent(t *testing.T) {
	rec := newRecord(t, outbox.KindPenalty, outbox.TemplateTechnicianPenalty, outbox.PenaltyPayload{
		TechnicianID: uuid.New(),
		PenaltyType:  "CANCELLATION_STRIKE",
	}, 0)
	store := &fakeStore{rec: rec}
	m, collab := newTestModule(store, nil)
	collab.err = &collaborators.PermanentError{Service: "reputation service", StatusCode: 422, Body: "unknown technician"}

	_ = m.Handle(context.Background(), dueEvent(rec))
	if collab.penalty.PenaltyType != "CANCELLATION_STRIKE" {
		t.Fatalf("penalty not forwarded: %+v", collab.penalty)
	}
	if !strings.Contains(store.failed, "unknown technician") || !store.retryAt.IsZero() {
		t.Fatalf("expected permanent failure, got %+v", store)
	}
}

func TestInvalidPayloadFails(t *testing.T) {
	rec := outbox.Record{ID: uuid.New(), Kind: outbox.KindRefund, Template: outbox.TemplateRefundRequest, Payload: json.RawMessage(`{"amount":"lots"}`)}
	store := &fakeStore{rec: rec}
	m, _ := newTestModule(store, nil)

	_ = m.Handle(context.Background(), dueEvent(rec))
	if !strings.HasPrefix(store.failed, invalidOutboxPayloadPrefix) {
		t.Fatalf("expected invalid payload failure, got %q", store.failed)
	}
}

func TestSettledRecordIsSkipped(t *testing.T) {
	rec := newRecord(t, outbox.KindPenalty, outbox.TemplateTechnicianPenalty, outbox.PenaltyPayload{}, 1)
	rec.Status = outbox.StatusSucceeded
	store := &fakeStore{rec: rec}
	m, collab := newTestModule(store, nil)

	if err := m.Handle(context.Background(), dueEvent(rec)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if store.processing != 0 || collab.penaltyKey != uuid.Nil {
		t.Fatalf("settled record must not be reprocessed")
	}
}

func TestUnknownKindIsMarkedUnsupported(t *testing.T) {
	rec := newRecord(t, outbox.Kind("sms"), "sms_send", map[string]string{}, 0)
	store := &fakeStore{rec: rec}
	m, _ := newTestModule(store, nil)

	_ = m.Handle(context.Background(), dueEvent(rec))
	if !strings.Contains(store.failed, "unsupported") {
		t.Fatalf("expected unsupported failure, got %q", store.failed)
	}
}

func TestPrepareErrorIsReturned(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db down")}
	m, _ := newTestModule(store, nil)

	if err := m.Handle(context.Background(), events.AppointmentOutboxDue{OutboxID: uuid.New()}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	cases := map[int]time.Duration{
		0:  time.Minute,
		1:  time.Minute,
		3:  4 * time.Minute,
		7:  60 * time.Minute,
		20: 60 * time.Minute,
	}
	for attempt, want := range cases {
		if got := computeOutboxRetryDelay(attempt); got != want {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, want)
		}
	}
}

type fakeWhatsApp struct {
	phone, message string
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, phoneNumber, message string) error {
	f.phone, f.message = phoneNumber, message
	return nil
}

func TestNotificationFallsBackToWhatsApp(t *testing.T) {
	phone := "+6281234567890"
	rec := newRecord(t, outbox.KindNotification, outbox.TemplateCustomerTechChanged, outbox.NotificationPayload{
		Recipient:     outbox.Recipient{Role: outbox.RecipientCustomer, Name: "Siti", Phone: &phone},
		ScheduledDate: "2026-03-20",
		Data:          map[string]string{"newTechnicianName": "Dewi", "newEstimatedCost": "750000"},
	}, 0)
	store := &fakeStore{rec: rec}
	sender := &recordingSender{}
	m, _ := newTestModule(store, sender)
	wa := &fakeWhatsApp{}
	m.SetWhatsAppSender(wa)

	if err := m.Handle(context.Background(), dueEvent(rec)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if wa.phone != phone || !strings.Contains(wa.message, "handled by Dewi") || !strings.Contains(wa.message, "750000") {
		t.Fatalf("unexpected whatsapp message %q to %q", wa.message, wa.phone)
	}
	if len(sender.calls) != 0 || !store.succeeded {
		t.Fatalf("expected whatsapp only and success")
	}
}

func TestWhatsAppMessageUnknownTemplate(t *testing.T) {
	if _, ok := whatsAppMessage(outbox.TemplateRefundRequest, outbox.NotificationPayload{}); ok {
		t.Fatalf("refund template has no text variant")
	}
}
