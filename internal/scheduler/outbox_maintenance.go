package scheduler

import (
	"context"
	"time"

	"repair_ops_backend/platform/logger"
)

const (
	defaultMaintenanceInterval = 10 * time.Minute
	defaultStaleAfter          = 15 * time.Minute
	defaultSucceededRetention  = 14 * 24 * time.Hour
)

// OutboxJanitor is the subset of the outbox repository used for maintenance.
type OutboxJanitor interface {
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSucceededBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxMaintenance periodically requeues stalled records and removes old
// delivered ones.
type OutboxMaintenance struct {
	repo       OutboxJanitor
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	retention  time.Duration
	now        func() time.Time
}

func NewOutboxMaintenance(repo OutboxJanitor, log *logger.Logger, interval, staleAfter, retention time.Duration) *OutboxMaintenance {
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	if retention <= 0 {
		retention = defaultSucceededRetention
	}

	return &OutboxMaintenance{
		repo:       repo,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		retention:  retention,
		now:        time.Now,
	}
}

func (m *OutboxMaintenance) Run(ctx context.Context) {
	if m == nil || m.repo == nil {
		return
	}

	m.sweep(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *OutboxMaintenance) sweep(ctx context.Context) {
	now := m.now()

	requeued, err := m.repo.RequeueStale(ctx, now.Add(-m.staleAfter))
	if err != nil {
		m.log.Warn("outbox requeue failed", "error", err)
	} else if requeued > 0 {
		m.log.Warn("outbox requeued stalled records", "count", requeued)
	}

	deleted, err := m.repo.DeleteSucceededBefore(ctx, now.Add(-m.retention))
	if err != nil {
		m.log.Warn("outbox cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		m.log.Info("outbox cleanup deleted delivered records", "deleted", deleted)
	}
}
