package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/repository"
)

// Commit results reported through WriterConfig.OnCommit.
const (
	CommitOK      = "ok"
	CommitRetried = "retried"
	CommitDropped = "dropped"
	CommitFailed  = "failed"
)

// Snapshotter yields a consistent copy of the queue contents. *Queue takes
// the copy under its mutation lock.
type Snapshotter interface {
	Items() []domain.Item
}

// WriterConfig tunes the durability writer.
type WriterConfig struct {
	Key     string
	Timeout time.Duration
	// MinInterval spaces commits apart; zero commits as soon as notified.
	MinInterval time.Duration
	// OnCommit is optional (nil = no-op).
	OnCommit func(result string, elapsed time.Duration)
}

// Writer shadows the queue into a blob repository. A single goroutine (Run)
// consumes a one-slot notification channel, so any burst of mutations that
// lands while a commit is in progress collapses into one more commit.
type Writer struct {
	src     Snapshotter
	repo    repository.BlobRepository
	cfg     WriterConfig
	limiter *rate.Limiter
	logger  *zap.Logger

	notify chan struct{}
	done   chan struct{}

	// mu orders whole passes so a later snapshot is never overwritten by an
	// earlier one.
	mu sync.Mutex
}

func NewWriter(src Snapshotter, repo repository.BlobRepository, cfg WriterConfig, logger *zap.Logger) *Writer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.OnCommit == nil {
		cfg.OnCommit = func(string, time.Duration) {}
	}
	var limiter *rate.Limiter
	if cfg.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return &Writer{
		src:     src,
		repo:    repo,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.With(zap.String("key", cfg.Key)),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Notify schedules a commit. It never blocks.
func (w *Writer) Notify() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Run commits snapshots until ctx is cancelled. A notification still pending
// at cancellation is committed before Run returns.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	w.logger.Debug("durability writer started")

	for {
		select {
		case <-ctx.Done():
			select {
			case <-w.notify:
				w.persist(context.WithoutCancel(ctx))
			default:
			}
			w.logger.Debug("durability writer stopping")
			return
		case <-w.notify:
			if w.limiter != nil {
				if err := w.limiter.Wait(ctx); err != nil {
					w.persist(context.WithoutCancel(ctx))
					w.logger.Debug("durability writer stopping")
					return
				}
			}
			w.persist(ctx)
		}
	}
}

// Done is closed when Run returns.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

// Flush commits the current snapshot synchronously and returns the commit
// error, if any. Run never surfaces errors; Flush exists for shutdown paths.
func (w *Writer) Flush(ctx context.Context) error {
	return w.persist(ctx)
}

func (w *Writer) persist(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	items := w.src.Items()
	blob := Encode(items)

	err := w.commit(ctx, blob)
	result := CommitOK
	if errors.Is(err, domain.ErrConcurrentModification) {
		w.logger.Debug("concurrent modification during commit, retrying")
		err = w.commit(ctx, blob)
		result = CommitRetried
		if errors.Is(err, domain.ErrConcurrentModification) {
			result = CommitDropped
		}
	}
	if err != nil && result != CommitDropped {
		result = CommitFailed
	}

	elapsed := time.Since(start)
	w.cfg.OnCommit(result, elapsed)

	if err != nil {
		w.logger.Warn("queue snapshot not persisted",
			zap.String("result", result),
			zap.Int("size", len(items)),
			zap.Error(err),
		)
		return err
	}
	w.logger.Debug("queue snapshot persisted",
		zap.Int("size", len(items)),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func (w *Writer) commit(ctx context.Context, blob string) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()
	return w.repo.Set(ctx, w.cfg.Key, blob)
}
