package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts pipeline outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes        *prometheus.CounterVec
	verifyLatency   prometheus.Histogram
	validSignatures prometheus.Histogram
	consumed        prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vaa_verifier",
				Subsystem: "pipeline",
				Name:      "outcomes_total",
				Help:      "VAAs processed, by outcome (posted, filtered, or failure kind).",
			},
			[]string{"outcome"},
		),
		verifyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vaa_verifier",
				Subsystem: "pipeline",
				Name:      "verify_duration_seconds",
				Help:      "Time spent recovering and matching guardian signatures.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
		),
		validSignatures: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vaa_verifier",
				Subsystem: "pipeline",
				Name:      "valid_signatures",
				Help:      "Matched guardian signatures per verified VAA.",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			},
		),
		consumed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vaa_verifier",
				Subsystem: "pipeline",
				Name:      "consumed_total",
				Help:      "Posted records marked consumed.",
			},
		),
	}
	registerer.MustRegister(m.outcomes, m.verifyLatency, m.validSignatures, m.consumed)
	return m
}

func (m *Metrics) recordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordVerification(d time.Duration, valid int) {
	if m == nil {
		return
	}
	m.verifyLatency.Observe(d.Seconds())
	m.validSignatures.Observe(float64(valid))
}

func (m *Metrics) recordConsumed() {
	if m == nil {
		return
	}
	m.consumed.Inc()
}
