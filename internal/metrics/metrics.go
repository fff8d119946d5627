package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/queue"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	QueueEvictions  *prometheus.CounterVec
	PersistTotal    *prometheus.CounterVec
	PersistLatency  prometheus.Histogram
	RequestsSent    *prometheus.CounterVec
	RequestsFailed  *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "request_queue_depth",
			Help: "Current number of requests waiting in the queue.",
		}),

		QueueEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "request_queue_evictions_total",
			Help: "Requests dropped because the queue reached capacity.",
		}, []string{"tag"}),

		PersistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "request_queue_persist_total",
			Help: "Snapshot commits by outcome (ok, retried, dropped, failed).",
		}, []string{"result"}),

		PersistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "request_queue_persist_seconds",
			Help:    "Time taken to encode and commit one queue snapshot.",
			Buckets: prometheus.DefBuckets,
		}),

		RequestsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_dispatched_total",
			Help: "Total number of requests delivered to the provider.",
		}, []string{"tag"}),

		RequestsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_failed_total",
			Help: "Total number of failed delivery attempts.",
		}, []string{"tag"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_dispatch_seconds",
			Help:    "Latency from dequeue decision to provider acknowledgement.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tag"}),
	}

	reg.MustRegister(
		m.QueueDepth,
		m.QueueEvictions,
		m.PersistTotal,
		m.PersistLatency,
		m.RequestsSent,
		m.RequestsFailed,
		m.DispatchLatency,
	)

	return m
}

// QueueHooks returns the observation callbacks expected by queue.Open.
func (m *Metrics) QueueHooks() queue.Hooks {
	return queue.Hooks{
		OnDepth: func(size int) {
			m.QueueDepth.Set(float64(size))
		},
		OnEvict: func(item domain.Item) {
			m.QueueEvictions.WithLabelValues(item.Tag).Inc()
		},
		OnCommit: func(result string, elapsed time.Duration) {
			m.PersistTotal.WithLabelValues(result).Inc()
			m.PersistLatency.Observe(elapsed.Seconds())
		},
	}
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the dispatcher stays import-free.
func (m *Metrics) WorkerHooks() (
	onSent func(tag string, latency time.Duration),
	onFailed func(tag string),
) {
	onSent = func(tag string, latency time.Duration) {
		m.RequestsSent.WithLabelValues(tag).Inc()
		m.DispatchLatency.WithLabelValues(tag).Observe(latency.Seconds())
	}
	onFailed = func(tag string) {
		m.RequestsFailed.WithLabelValues(tag).Inc()
	}
	return
}
