package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Flusher commits the queue snapshot synchronously. *queue.Queue implements it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// CheckpointWorker periodically re-commits the queue snapshot.
//
// The durability writer only commits after a mutation, so a commit it had to
// give up on would otherwise stay stale until the queue next changes.
type CheckpointWorker struct {
	q        Flusher
	interval time.Duration
	logger   *zap.Logger
}

func NewCheckpointWorker(q Flusher, interval time.Duration, logger *zap.Logger) *CheckpointWorker {
	return &CheckpointWorker{q: q, interval: interval, logger: logger}
}

// Run ticks every interval and flushes the queue.
// Stops cleanly when ctx is cancelled.
func (cw *CheckpointWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	cw.logger.Info("checkpoint worker started", zap.Duration("interval", cw.interval))

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("checkpoint worker stopping")
			return
		case <-ticker.C:
			if err := cw.q.Flush(ctx); err != nil {
				cw.logger.Warn("checkpoint flush failed", zap.Error(err))
			}
		}
	}
}
