// Package risk is a rule-based behavioural scorer. It counts recent
// activity per actor in the same counter store the DLP quotas use, so the
// scores agree across instances when that store is Redis.
package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	policyModels "regulus/internal/policy/models"
	"regulus/pkg/domain"
	"regulus/pkg/requestcontext"
)

// Counter is an atomic rolling counter.
type Counter interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*policyModels.CounterResult, error)
}

// Weights of each signal. The total is clamped to domain.MaxRiskScore.
const (
	weightBurst      = 4
	weightNewOrigin  = 2
	weightNewDevice  = 3
	weightBulkAction = 1
)

const (
	defaultBurstLimit  = 30
	defaultBurstWindow = time.Minute
	defaultMemory      = 30 * 24 * time.Hour
	// SuspiciousAt is the score from which an assessment is flagged.
	SuspiciousAt = 7
)

type Scorer struct {
	counter     Counter
	burstLimit  int
	burstWindow time.Duration
	memory      time.Duration
}

type Option func(*Scorer)

// WithBurst sets how many requests per window are normal for one actor.
func WithBurst(limit int, window time.Duration) Option {
	return func(s *Scorer) {
		if limit > 0 && window > 0 {
			s.burstLimit, s.burstWindow = limit, window
		}
	}
}

// WithMemory sets how long a seen origin or device stays familiar.
func WithMemory(d time.Duration) Option {
	return func(s *Scorer) {
		if d > 0 {
			s.memory = d
		}
	}
}

func New(counter Counter, opts ...Option) (*Scorer, error) {
	if counter == nil {
		return nil, errors.New("counter store is required")
	}
	s := &Scorer{
		counter:     counter,
		burstLimit:  defaultBurstLimit,
		burstWindow: defaultBurstWindow,
		memory:      defaultMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Score adds the weight of every signal that looks unusual for actorID.
// Known signal keys are origin_ip, device and action.
func (s *Scorer) Score(ctx context.Context, actorID string, signals domain.RiskSignals) (domain.RiskAssessment, error) {
	now := requestcontext.Now(ctx)
	score := 0

	burst, err := s.counter.Consume(ctx, "risk:burst:"+actorID, 0, s.burstWindow, now)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("risk burst counter: %w", err)
	}
	if burst.Count > s.burstLimit {
		score += weightBurst
	}

	if ip := signals["origin_ip"]; ip != "" {
		novel, err := s.novel(ctx, "risk:origin:"+actorID+":"+ip, now)
		if err != nil {
			return domain.RiskAssessment{}, err
		}
		if novel {
			score += weightNewOrigin
		}
	}
	if device := signals["device"]; device != "" {
		novel, err := s.novel(ctx, "risk:device:"+actorID+":"+device, now)
		if err != nil {
			return domain.RiskAssessment{}, err
		}
		if novel {
			score += weightNewDevice
		}
	}

	switch policyModels.Action(signals["action"]) {
	case policyModels.ActionExport, policyModels.ActionDownload:
		score += weightBulkAction
	}

	r := domain.RiskAssessment{Score: float64(score)}.Clamp()
	r.Suspicious = r.Score >= SuspiciousAt
	return r, nil
}

// novel reports whether key is seen for the first time within the memory
// window.
func (s *Scorer) novel(ctx context.Context, key string, now time.Time) (bool, error) {
	res, err := s.counter.Consume(ctx, key, 0, s.memory, now)
	if err != nil {
		return false, fmt.Errorf("risk counter: %w", err)
	}
	return res.Count == 1, nil
}
