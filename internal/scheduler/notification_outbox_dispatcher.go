package scheduler

import (
	"context"
	"errors"
	"time"

	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/config"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/telemetry"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	dispatchInterval  = 2 * time.Second
	dispatchBatchSize = 50
)

// OutboxClaimer is the subset of the outbox repository the dispatcher needs.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// OutboxDispatcher claims due outbox rows and enqueues one task per row.
type OutboxDispatcher struct {
	client TaskEnqueuer
	queue  string
	repo   OutboxClaimer
	log    *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*OutboxDispatcher, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &OutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
		repo:   repo,
		log:    log,
	}, nil
}

func (d *OutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatchOnce(ctx)
	}
}

// dispatchOnce moves one batch of due rows onto the queue and returns how
// many were enqueued. Rows that cannot be enqueued go back to pending.
func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, dispatchBatchSize)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		if err := d.enqueue(ctx, rec); err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			d.log.Warn("outbox enqueue failed", "outboxId", rec.ID.String(), "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		d.log.Debug("outbox records enqueued", "count", enqueued)
	}
	return enqueued
}

func (d *OutboxDispatcher) enqueue(ctx context.Context, rec outbox.Record) error {
	ctx, span := telemetry.Tracer().Start(ctx, "scheduler.outbox_enqueue")
	defer span.End()

	task, err := NewAppointmentOutboxDueTask(newPayloadFromRecord(rec, telemetry.InjectMap(ctx)))
	if err != nil {
		return err
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(rec.RunAt),
		asynq.Queue(d.queue),
		asynq.TaskID(taskID(rec)),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
