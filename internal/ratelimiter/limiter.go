package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// TagLimiters holds one token bucket limiter per request tag, created on
// first use. Each limiter enforces a steady-state rate (e.g. 10 tokens/sec).
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type TagLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// New creates a TagLimiters with ratePerSec tokens per second per tag.
func New(ratePerSec int) *TagLimiters {
	return &TagLimiters{
		limit:    rate.Limit(ratePerSec),
		burst:    max(ratePerSec, 1),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the tag's limiter grants a token.
// Called by the dispatcher immediately before sending to the provider.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (tl *TagLimiters) Wait(ctx context.Context, tag string) error {
	return tl.limiter(tag).Wait(ctx)
}

func (tl *TagLimiters) limiter(tag string) *rate.Limiter {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	l, ok := tl.limiters[tag]
	if !ok {
		l = rate.NewLimiter(tl.limit, tl.burst)
		tl.limiters[tag] = l
	}
	return l
}
