package challenge

import (
	"context"
	"time"

	"regulus/pkg/requestcontext"
)

// StartSweeper removes expired challenges every interval until ctx is
// cancelled. Sweep failures are logged and retried on the next tick.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case tick := <-ticker.C:
			n, err := s.Sweep(requestcontext.WithTime(ctx, tick))
			if err != nil {
				s.logger.WarnContext(ctx, "challenge sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.DebugContext(ctx, "expired challenges swept", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
