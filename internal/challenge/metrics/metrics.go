package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for step-up challenges and device trust.
type Metrics struct {
	// Challenge outcomes: issued, verified, failed, exhausted, expired
	Challenges *prometheus.CounterVec

	// Device observations by whether the fingerprint was new
	DeviceObservations *prometheus.CounterVec

	// Step-up proofs redeemed or rejected as replays
	ProofRedemptions *prometheus.CounterVec

	SweptChallenges prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Challenges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_challenge_outcomes_total",
			Help: "Step-up challenge outcomes",
		}, []string{"outcome"}),

		DeviceObservations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_device_observations_total",
			Help: "Device fingerprint observations",
		}, []string{"first_seen"}),

		ProofRedemptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regulus_stepup_proof_redemptions_total",
			Help: "Step-up proof redemptions by result",
		}, []string{"result"}),

		SweptChallenges: f.NewCounter(prometheus.CounterOpts{
			Name: "regulus_challenges_swept_total",
			Help: "Expired challenges removed by the sweeper",
		}),
	}
}

func (m *Metrics) IncrementChallenge(outcome string) {
	if m != nil {
		m.Challenges.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementDeviceObservation(firstSeen bool) {
	if m == nil {
		return
	}
	label := "false"
	if firstSeen {
		label = "true"
	}
	m.DeviceObservations.WithLabelValues(label).Inc()
}

func (m *Metrics) IncrementProofRedemption(result string) {
	if m != nil {
		m.ProofRedemptions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) AddSwept(n int) {
	if m != nil && n > 0 {
		m.SweptChallenges.Add(float64(n))
	}
}
