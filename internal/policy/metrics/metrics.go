package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy gate.
type Metrics struct {
	// Decision outcomes by outcome and resource type
	Decisions *prometheus.CounterVec

	// Violations by kind
	Violations *prometheus.CounterVec

	// Throttle delays handed to callers
	Throttle prometheus.Histogram

	EvaluateLatency prometheus.Histogram
}

// New creates policy metrics registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_policy_decisions_total",
			Help: "Policy decisions by outcome and resource type",
		}, []string{"outcome", "resource_type"}), // outcome: "allow", "deny", "step_up"

		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_policy_violations_total",
			Help: "Policy violations by kind",
		}, []string{"violation"}),

		Throttle: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "regulus_policy_throttle_milliseconds",
			Help:    "Throttle delay assigned by behavioural risk",
			Buckets: []float64{0, 1000, 2000, 3000, 5000, 7500, 10000},
		}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "regulus_policy_evaluate_duration_seconds",
			Help:    "Duration of a full policy evaluation including audit",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncrementDecision(outcome, resourceType string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome, resourceType).Inc()
	}
}

func (m *Metrics) IncrementViolation(violation string) {
	if m != nil {
		m.Violations.WithLabelValues(violation).Inc()
	}
}

func (m *Metrics) ObserveThrottle(millis int) {
	if m != nil {
		m.Throttle.Observe(float64(millis))
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
