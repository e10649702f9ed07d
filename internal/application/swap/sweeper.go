package swap

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically expires stale pending requests so reserved
// slots do not stay locked forever. Sweeps are idempotent, so overlap
// with on-demand expiry is harmless.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(service *Service, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger.With().Str("service", "swap_sweeper").Logger(),
	}
}

// Run sweeps until ctx is cancelled. Errors are logged, never fatal.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return
		case now := <-ticker.C:
			expired, err := s.service.ExpireStale(ctx, now.UTC())
			if err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
				continue
			}
			if expired > 0 {
				s.logger.Info().Int("expired", expired).Msg("swept stale requests")
			}
		}
	}
}
