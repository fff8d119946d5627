package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type flusherStub struct {
	calls atomic.Int32
	err   error
}

func (f *flusherStub) Flush(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestCheckpointWorker_FlushesPeriodically(t *testing.T) {
	f := &flusherStub{err: errors.New("disk full")}
	cw := NewCheckpointWorker(f, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cw.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if f.calls.Load() < 3 {
		t.Fatalf("expected repeated flushes despite errors, got %d", f.calls.Load())
	}
}
