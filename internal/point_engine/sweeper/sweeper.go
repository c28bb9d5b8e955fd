// Package sweeper persists EXPIRED for purchases whose access window has ended.
// Reads already present lapsed purchases as expired, so the sweep only keeps
// stored state and the active-purchase index tidy.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Expirer is the purchase operation the sweeper drives.
type Expirer interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type Sweeper struct {
	expirer  Expirer
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
}

func New(expirer Expirer, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Start sweeps once immediately and then on every tick until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting purchase expiry sweeper", "interval", s.interval.String())

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Purchase expiry sweeper stopping")
			return
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.expirer.SweepExpired(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Purchase expiry sweep failed", "error", err)
	}
}
