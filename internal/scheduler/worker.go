package scheduler

import (
	"context"

	"repair_ops_backend/internal/events"
	"repair_ops_backend/platform/config"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/telemetry"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(bus, log)
	w.server = server
	return w, nil
}

func newWorker(bus events.Bus, log *logger.Logger) *Worker {
	w := &Worker{
		mux: asynq.NewServeMux(),
		bus: bus,
		log: log,
	}
	w.mux.HandleFunc(TaskAppointmentOutboxDue, w.handleAppointmentOutboxDue)
	return w
}

func (w *Worker) handleAppointmentOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseAppointmentOutboxDuePayload(task)
	if err != nil {
		w.log.Error("dropping malformed outbox task", "error", err)
		return asynq.SkipRetry
	}

	ctx = telemetry.ExtractMap(ctx, payload.Trace)
	ctx, span := telemetry.Tracer().Start(ctx, "scheduler.outbox_due")
	defer span.End()

	outboxID, _ := uuid.Parse(payload.OutboxID)
	appointmentID, _ := uuid.Parse(payload.AppointmentID)

	return w.bus.PublishSync(ctx, events.AppointmentOutboxDue{
		BaseEvent:     events.NewBaseEvent(),
		OutboxID:      outboxID,
		AppointmentID: appointmentID,
		Kind:          payload.Kind,
		Template:      payload.Template,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
