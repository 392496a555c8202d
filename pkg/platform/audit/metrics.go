package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit queue health. A nil *Metrics is a no-op.
type Metrics struct {
	EntriesAppended *prometheus.CounterVec
	QueueDepth      prometheus.Gauge
	FlushDuration   prometheus.Histogram
	FlushFailures   prometheus.Counter
	ChainHead       prometheus.Gauge
}

// NewMetrics registers audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntriesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_audit_entries_appended_total",
			Help: "Audit entries sequenced, by path",
		}, []string{"path"}), // path: "batched", "critical"

		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "regulus_audit_queue_depth",
			Help: "Sequenced entries awaiting persistence",
		}),

		FlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "regulus_audit_flush_duration_seconds",
			Help:    "Duration of batch persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		FlushFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "regulus_audit_flush_failures_total",
			Help: "Batch persistence failures; failed batches are requeued",
		}),

		ChainHead: f.NewGauge(prometheus.GaugeOpts{
			Name: "regulus_audit_chain_head_sequence",
			Help: "Highest persisted audit sequence",
		}),
	}
}

func (m *Metrics) incAppended(critical bool) {
	if m == nil {
		return
	}
	path := "batched"
	if critical {
		path = "critical"
	}
	m.EntriesAppended.WithLabelValues(path).Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) observeFlush(seconds float64) {
	if m != nil {
		m.FlushDuration.Observe(seconds)
	}
}

func (m *Metrics) incFlushFailure() {
	if m != nil {
		m.FlushFailures.Inc()
	}
}

func (m *Metrics) setHead(seq uint64) {
	if m != nil {
		m.ChainHead.Set(float64(seq))
	}
}
