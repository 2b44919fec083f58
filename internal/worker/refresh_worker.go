package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/service"
)

// RefreshWorker periodically emits a queue_refreshed event carrying the
// full ordered queue, keeping staff dashboards convergent even if a
// live event was missed (delivery is at-most-once by design).
type RefreshWorker struct {
	svc      *service.QueueService
	interval time.Duration
	logger   *zap.Logger
}

func NewRefreshWorker(svc *service.QueueService, interval time.Duration, logger *zap.Logger) *RefreshWorker {
	return &RefreshWorker{svc: svc, interval: interval, logger: logger}
}

// Run ticks every interval and publishes a refresh snapshot.
// Stops cleanly when ctx is cancelled.
func (rw *RefreshWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("refresh worker started", zap.Duration("interval", rw.interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("refresh worker stopping")
			return
		case <-ticker.C:
			if err := rw.svc.PublishRefresh(ctx); err != nil {
				rw.logger.Error("refresh poll error", zap.Error(err))
			}
		}
	}
}
