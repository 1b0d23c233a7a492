package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/examgen/internal/metrics"
)

// DefaultSweepInterval is how often expired quota entries are removed.
const DefaultSweepInterval = time.Minute

// Sweeper periodically deletes expired quota entries.
type Sweeper struct {
	store    QuotaStore
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewSweeper returns a sweeper for store. A non-positive interval uses
// DefaultSweepInterval.
func NewSweeper(store QuotaStore, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled. It always returns nil so
// it can sit in an errgroup next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and returns the number of removed entries.
// Failures are logged and reported as zero.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "quota sweep failed", "error", err)
		return 0
	}
	s.metrics.Swept(n)
	if n > 0 {
		s.logger.DebugContext(ctx, "quota sweep", "deleted", n)
	}
	return n
}
