package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine.
type Metrics struct {
	// Step executions by workflow type, step and outcome
	StepDuration *prometheus.HistogramVec

	// Transitions into each status by workflow type
	Transitions *prometheus.CounterVec

	// Advances rejected because another operation held the instance
	Conflicts prometheus.Counter

	// Instances found interrupted mid-step
	Interrupted prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regulus_workflow_step_duration_seconds",
			Help:    "Duration of workflow step handlers",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"type", "step", "outcome"}), // outcome: "succeeded", "failed"

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_workflow_transitions_total",
			Help: "Workflow status transitions",
		}, []string{"type", "status"}),

		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "regulus_workflow_conflicts_total",
			Help: "Workflow operations rejected because one was already in flight",
		}),

		Interrupted: f.NewCounter(prometheus.CounterOpts{
			Name: "regulus_workflow_interrupted_total",
			Help: "Workflow instances failed because a step was interrupted",
		}),
	}
}

func (m *Metrics) ObserveStep(workflowType, step string, succeeded bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	m.StepDuration.WithLabelValues(workflowType, step, outcome).Observe(d.Seconds())
}

func (m *Metrics) IncrementTransition(workflowType, status string) {
	if m != nil {
		m.Transitions.WithLabelValues(workflowType, status).Inc()
	}
}

func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.Conflicts.Inc()
	}
}

func (m *Metrics) IncrementInterrupted() {
	if m != nil {
		m.Interrupted.Inc()
	}
}
