package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"repair_ops_backend/internal/events"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeClaimer struct {
	records []outbox.Record
	pending map[uuid.UUID]string
}

func (f *fakeClaimer) ClaimPending(context.Context, int) ([]outbox.Record, error) {
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, lastError *string) error {
	if f.pending == nil {
		f.pending = map[uuid.UUID]string{}
	}
	f.pending[id] = *lastError
	return nil
}

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	failOn string
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	payload, _ := ParseAppointmentOutboxDuePayload(task)
	if payload.OutboxID == f.failOn {
		return nil, errors.New("redis unavailable")
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestDispatchOnceEnqueuesAndRequeuesFailures(t *testing.T) {
	ok := outbox.Record{ID: uuid.New(), AppointmentID: uuid.New(), Kind: outbox.KindRefund, Template: outbox.TemplateRefundRequest, RunAt: time.Now()}
	bad := outbox.Record{ID: uuid.New(), AppointmentID: uuid.New(), Kind: outbox.KindPenalty, Template: outbox.TemplateTechnicianPenalty, RunAt: time.Now()}
	repo := &fakeClaimer{records: []outbox.Record{ok, bad}}
	client := &fakeEnqueuer{failOn: bad.ID.String()}
	d := &OutboxDispatcher{client: client, queue: defaultQueue, repo: repo, log: logger.New("development")}

	if n := d.dispatchOnce(context.Background()); n != 1 {
		t.Fatalf("dispatchOnce() = %d, want 1", n)
	}
	if len(client.tasks) != 1 || client.tasks[0].Type() != TaskAppointmentOutboxDue {
		t.Fatalf("unexpected tasks %v", client.tasks)
	}
	payload, err := ParseAppointmentOutboxDuePayload(client.tasks[0])
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.OutboxID != ok.ID.String() || payload.Kind != string(outbox.KindRefund) {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if repo.pending[bad.ID] != "redis unavailable" {
		t.Fatalf("failed enqueue must return the row to pending, got %v", repo.pending)
	}
}

func TestParseRejectsMissingOutboxID(t *testing.T) {
	task := asynq.NewTask(TaskAppointmentOutboxDue, []byte(`{"kind":"refund"}`))
	if _, err := ParseAppointmentOutboxDuePayload(task); err == nil {
		t.Fatalf("expected error for missing outbox id")
	}
}

func TestTaskIDChangesPerAttempt(t *testing.T) {
	rec := outbox.Record{ID: uuid.New(), Attempts: 1}
	first := taskID(rec)
	rec.Attempts = 2
	if first == taskID(rec) {
		t.Fatalf("retries must get a fresh task id")
	}
}

func TestWorkerPublishesOutboxDue(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	var got events.AppointmentOutboxDue
	bus.Subscribe(events.AppointmentOutboxDue{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = e.(events.AppointmentOutboxDue)
		return nil
	}))
	w := newWorker(bus, logger.New("development"))

	rec := outbox.Record{ID: uuid.New(), AppointmentID: uuid.New(), Kind: outbox.KindNotification, Template: outbox.TemplateAppointmentCancelled}
	task, err := NewAppointmentOutboxDueTask(newPayloadFromRecord(rec, nil))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := w.handleAppointmentOutboxDue(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got.OutboxID != rec.ID || got.AppointmentID != rec.AppointmentID || got.Template != rec.Template {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestWorkerSkipsRetryForMalformedTask(t *testing.T) {
	w := newWorker(events.NewInMemoryBus(nil), logger.New("development"))
	err := w.handleAppointmentOutboxDue(context.Background(), asynq.NewTask(TaskAppointmentOutboxDue, []byte(`not json`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

type fakeJanitor struct {
	staleCutoff, deleteCutoff time.Time
}

func (f *fakeJanitor) RequeueStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.staleCutoff = cutoff
	return 2, nil
}

func (f *fakeJanitor) DeleteSucceededBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleteCutoff = cutoff
	return 5, nil
}

func TestOutboxMaintenanceSweep(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	repo := &fakeJanitor{}
	m := NewOutboxMaintenance(repo, logger.New("development"), 0, 0, 0)
	m.now = func() time.Time { return now }

	m.sweep(context.Background())

	if !repo.staleCutoff.Equal(now.Add(-defaultStaleAfter)) {
		t.Fatalf("stale cutoff = %v", repo.staleCutoff)
	}
	if !repo.deleteCutoff.Equal(now.Add(-defaultSucceededRetention)) {
		t.Fatalf("delete cutoff = %v", repo.deleteCutoff)
	}
}
