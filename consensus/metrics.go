package consensus

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional set of Prometheus collectors for a
// PoAConsensus instance. A nil *Metrics disables collection entirely.
type Metrics struct {
	activeValidators    prometheus.Gauge
	proposalsCreated    prometheus.Counter
	proposalsFinalized  prometheus.Counter
	rateLimitRejections prometheus.Counter
}

// NewMetrics registers a fresh Metrics set on registry. Pass nil to
// disable metrics for this consensus instance (the default in tests,
// where repeated registration on the global registry would collide).
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{
		activeValidators: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blockit_poa_active_validators",
			Help: "Number of validators currently able to sign.",
		}),
		proposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockit_poa_proposals_created_total",
			Help: "Total proposals created.",
		}),
		proposalsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockit_poa_proposals_finalized_total",
			Help: "Total proposals that reached quorum.",
		}),
		rateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockit_poa_rate_limit_rejections_total",
			Help: "Total proposals rejected by the rate limiter.",
		}),
	}
	registry.MustRegister(m.activeValidators, m.proposalsCreated, m.proposalsFinalized, m.rateLimitRejections)
	return m
}

func (m *Metrics) setActiveValidators(n int) {
	if m == nil {
		return
	}
	m.activeValidators.Set(float64(n))
}

func (m *Metrics) incProposalsCreated() {
	if m == nil {
		return
	}
	m.proposalsCreated.Inc()
}

func (m *Metrics) incProposalsFinalized() {
	if m == nil {
		return
	}
	m.proposalsFinalized.Inc()
}

func (m *Metrics) incRateLimitRejections() {
	if m == nil {
		return
	}
	m.rateLimitRejections.Inc()
}
