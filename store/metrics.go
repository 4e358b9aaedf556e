package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an optional set of Prometheus collectors for a Store. A
// nil *Metrics disables collection entirely.
type Metrics struct {
	commitsTotal   prometheus.Counter
	rollbacksTotal prometheus.Counter
	commitDuration prometheus.Histogram
}

// NewMetrics registers a fresh Metrics set on registry. Pass nil to
// disable metrics (the default in tests, where repeated registration on
// the global registry would collide).
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{
		commitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockit_store_commits_total",
			Help: "Total transactions committed to the durable store.",
		}),
		rollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockit_store_rollbacks_total",
			Help: "Total transactions rolled back.",
		}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blockit_store_commit_duration_seconds",
			Help:    "Duration of durable store commits.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(m.commitsTotal, m.rollbacksTotal, m.commitDuration)
	return m
}

func (m *Metrics) observeCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.commitsTotal.Inc()
	m.commitDuration.Observe(d.Seconds())
}

func (m *Metrics) incRollback() {
	if m == nil {
		return
	}
	m.rollbacksTotal.Inc()
}
