package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/metrics"
	"github.com/notifyhub/request-queue/internal/queue"
)

func TestQueueHooks_TrackDepthAndEvictions(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	q := queue.New(queue.WithCapacity(3), queue.WithHooks(m.QueueHooks()))
	q.Enqueue(domain.NewItem(domain.TagRegisterOpen, nil))
	q.Enqueue(domain.NewItem(domain.TagIdentify, nil))
	q.Enqueue(domain.NewItem(domain.TagLogout, nil)) // evicts identify

	if got := testutil.ToFloat64(m.QueueDepth); got != 2 {
		t.Fatalf("expected depth 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueueEvictions.WithLabelValues(domain.TagIdentify)); got != 1 {
		t.Fatalf("expected one identify eviction, got %v", got)
	}
}

func TestQueueHooks_CommitResults(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	hooks := m.QueueHooks()

	hooks.OnCommit(queue.CommitOK, 2*time.Millisecond)
	hooks.OnCommit(queue.CommitOK, 3*time.Millisecond)
	hooks.OnCommit(queue.CommitDropped, time.Millisecond)

	if got := testutil.ToFloat64(m.PersistTotal.WithLabelValues(queue.CommitOK)); got != 2 {
		t.Fatalf("expected 2 ok commits, got %v", got)
	}
	if got := testutil.ToFloat64(m.PersistTotal.WithLabelValues(queue.CommitDropped)); got != 1 {
		t.Fatalf("expected 1 dropped commit, got %v", got)
	}
	if got := testutil.CollectAndCount(m.PersistLatency); got != 1 {
		t.Fatalf("expected one latency histogram, got %d", got)
	}
}

func TestWorkerHooks(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	onSent, onFailed := m.WorkerHooks()

	onSent(domain.TagCompleteAction, 10*time.Millisecond)
	onFailed(domain.TagCompleteAction)
	onFailed(domain.TagCompleteAction)

	if got := testutil.ToFloat64(m.RequestsSent.WithLabelValues(domain.TagCompleteAction)); got != 1 {
		t.Fatalf("expected 1 sent, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsFailed.WithLabelValues(domain.TagCompleteAction)); got != 2 {
		t.Fatalf("expected 2 failed, got %v", got)
	}
}
