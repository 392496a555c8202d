package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"regulus/internal/workflow/ports"
	"regulus/pkg/platform/circuit"
)

// FailoverSender sends through a primary sender and switches to a fallback
// while the primary keeps failing. The primary is still tried on every
// send so that the breaker can close once it recovers.
type FailoverSender struct {
	primary  Sender
	fallback Sender
	breaker  *circuit.Breaker
	state    prometheus.Gauge
	logger   *slog.Logger
}

type FailoverOption func(*FailoverSender)

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(s *FailoverSender) {
		s.breaker = b
	}
}

// WithStateGauge reports the breaker state (1 = open) on g.
func WithStateGauge(g prometheus.Gauge) FailoverOption {
	return func(s *FailoverSender) {
		s.state = g
	}
}

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(s *FailoverSender) {
		s.logger = logger
	}
}

func NewFailoverSender(primary, fallback Sender, opts ...FailoverOption) (*FailoverSender, error) {
	if primary == nil || fallback == nil {
		return nil, errors.New("primary and fallback senders are required")
	}
	s := &FailoverSender{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("notifications"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FailoverSender) Send(ctx context.Context, n ports.Notification) (ports.DeliveryStatus, error) {
	status, err := s.primary.Send(ctx, n)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "notification sender recovered", "breaker", s.breaker.Name())
			s.setState(false)
		}
		return status, nil
	}
	if ctx.Err() != nil {
		return ports.DeliveryStatus{}, err
	}

	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "notification sender degraded, using fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
		s.setState(true)
	}
	if !useFallback {
		return ports.DeliveryStatus{}, err
	}
	return s.fallback.Send(ctx, n)
}

func (s *FailoverSender) setState(open bool) {
	if s.state == nil {
		return
	}
	if open {
		s.state.Set(1)
	} else {
		s.state.Set(0)
	}
}
