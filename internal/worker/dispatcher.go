package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/provider"
	"github.com/notifyhub/request-queue/internal/queue"
	"github.com/notifyhub/request-queue/internal/ratelimiter"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the dispatcher constructor signature clean.
type MetricHooks struct {
	OnSent   func(tag string, latency time.Duration)
	OnFailed func(tag string)
}

// Dispatcher drains the request queue in order, one request at a time.
//
// The head is peeked, not dequeued, while it is being sent: if the process
// dies mid-send the request is still in the persisted snapshot and is replayed
// after restart. It leaves the queue only once the provider accepts it or
// rejects it permanently.
type Dispatcher struct {
	q        *queue.Queue
	prov     provider.Provider
	limiter  *ratelimiter.TagLimiters
	interval time.Duration
	backoff  []time.Duration
	logger   *zap.Logger

	onSent   func(tag string, latency time.Duration)
	onFailed func(tag string)

	failures int
	inFlight atomic.Bool
}

// NewDispatcher constructs a dispatcher. Hook fields are optional (nil = no-op).
func NewDispatcher(
	q *queue.Queue,
	prov provider.Provider,
	limiter *ratelimiter.TagLimiters,
	interval time.Duration,
	backoff []time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Dispatcher {
	if hooks.OnSent == nil {
		hooks.OnSent = func(string, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(string) {}
	}
	if len(backoff) == 0 {
		backoff = []time.Duration{time.Second}
	}
	return &Dispatcher{
		q: q, prov: prov, limiter: limiter,
		interval: interval, backoff: backoff, logger: logger,
		onSent: hooks.OnSent, onFailed: hooks.OnFailed,
	}
}

// InFlight reports whether a request is currently being sent. Callers use it
// as the position hint for registration promotion.
func (d *Dispatcher) InFlight() bool {
	return d.inFlight.Load()
}

// Run blocks until ctx is cancelled, sending one request per iteration.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", zap.Duration("interval", d.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-timer.C:
			timer.Reset(d.step(ctx))
		}
	}
}

// step processes the head and returns how long to wait before the next one.
func (d *Dispatcher) step(ctx context.Context) time.Duration {
	item, ok := d.q.Peek()
	if !ok {
		return d.interval
	}

	// Block here until the per-tag rate limiter grants a token.
	if err := d.limiter.Wait(ctx, item.Tag); err != nil {
		// ctx cancelled while waiting — dispatcher is shutting down.
		return d.interval
	}

	log := d.logger.With(
		zap.String("request_id", item.ID),
		zap.String("tag", item.Tag),
	)

	d.inFlight.Store(true)
	start := time.Now()
	resp, err := d.prov.Send(ctx, item)
	elapsed := time.Since(start)
	d.inFlight.Store(false)

	if err == nil {
		d.failures = 0
		d.q.RemoveID(item.ID)
		d.onSent(item.Tag, elapsed)
		var msgID string
		if resp != nil {
			msgID = resp.MessageID
		}
		log.Info("request dispatched",
			zap.String("provider_msg_id", msgID),
			zap.Duration("latency", elapsed),
			zap.Int("queue_size", d.q.Size()),
		)
		return 0
	}

	d.onFailed(item.Tag)
	return d.handleFailure(item, err, log)
}

// handleFailure decides what happens to a request the provider did not
// accept:
//
//	session required → put a registration at the front and retry at once
//	permanent        → drop the request
//	anything else    → keep it at the head and back off
//
// Backoff grows with consecutive failures:
//
//	failure 1 → backoff[0]  (default 1 s)
//	failure 2 → backoff[1]  (default 5 s)
//	failure N ≥ len(backoff) → last backoff entry (clamped)
func (d *Dispatcher) handleFailure(item domain.Item, sendErr error, log *zap.Logger) time.Duration {
	switch {
	case errors.Is(sendErr, domain.ErrSessionRequired) && !item.IsPriority():
		had := d.q.ContainsPriorityClass()
		d.q.PromoteOrInsertPriority(domain.TagRegisterOpen, 0)
		log.Warn("session required, registration moved to front",
			zap.Bool("registration_was_queued", had), zap.Error(sendErr))
		return 0

	case errors.Is(sendErr, domain.ErrPermanent):
		d.failures = 0
		d.q.RemoveID(item.ID)
		log.Error("request failed permanently, dropped", zap.Error(sendErr))
		return 0
	}

	d.failures++
	idx := min(d.failures-1, len(d.backoff)-1)
	wait := d.backoff[idx]
	log.Warn("request send failed, will retry",
		zap.Error(sendErr),
		zap.Int("consecutive_failures", d.failures),
		zap.Duration("backoff", wait),
	)
	return wait
}
