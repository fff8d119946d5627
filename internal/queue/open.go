package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/repository"
)

// DefaultKey is the storage key the queue snapshot lives under.
const DefaultKey = "BNCServerRequestQueue"

// Config controls how Open hydrates and persists a queue.
type Config struct {
	Key string
	// Capacity overrides MaxItems when positive.
	Capacity           int
	PersistTimeout     time.Duration
	PersistMinInterval time.Duration
}

// Open loads the last committed snapshot from repo, builds a queue from it
// and starts the durability writer that keeps the snapshot current.
//
// A missing or unreadable snapshot yields an empty queue: losing a stale
// queue is preferable to refusing to start.
func Open(
	ctx context.Context,
	repo repository.BlobRepository,
	cfg Config,
	logger *zap.Logger,
	hooks Hooks,
) (*Queue, error) {
	if cfg.Key == "" {
		return nil, errors.New("queue: storage key is required")
	}
	logger = logger.With(zap.String("component", "request_queue"))

	blob, err := repo.Get(ctx, cfg.Key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		blob = ""
	case err != nil:
		logger.Warn("could not read persisted queue, starting empty",
			zap.String("key", cfg.Key), zap.Error(err))
		blob = ""
	}

	opts := []Option{WithItems(Decode(blob)...), WithHooks(hooks)}
	if cfg.Capacity > 0 {
		opts = append(opts, WithCapacity(cfg.Capacity))
	}
	q := New(opts...)

	w := NewWriter(q, repo, WriterConfig{
		Key:         cfg.Key,
		Timeout:     cfg.PersistTimeout,
		MinInterval: cfg.PersistMinInterval,
		OnCommit:    hooks.OnCommit,
	}, logger)
	q.notify = w.Notify
	q.writer = w

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.stopWriter = cancel
	go w.Run(runCtx)

	size := q.Size()
	q.hooks.OnDepth(size)
	logger.Info("request queue loaded", zap.String("key", cfg.Key), zap.Int("size", size))
	return q, nil
}

// Close stops the durability writer and commits the final state. The queue
// stays usable in memory afterwards but no longer persists.
func (q *Queue) Close(ctx context.Context) error {
	if q.writer == nil {
		return nil
	}
	q.stopWriter()

	select {
	case <-q.writer.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.writer.Flush(ctx)
}

// Flush commits the current state synchronously. It is a no-op for queues
// built with New.
func (q *Queue) Flush(ctx context.Context) error {
	if q.writer == nil {
		return nil
	}
	return q.writer.Flush(ctx)
}
