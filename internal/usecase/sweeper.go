package usecase

import (
	"context"
	"log/slog"
	"time"

	"steelloop/internal/ports"
)

// StaleReleaser returns abandoned event claims to the pending pool.
type StaleReleaser interface {
	ReleaseStale(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// Sweeper wires the periodic driver with stale-claim recovery, so events
// claimed by a crashed worker are redelivered and resumed from their memos.
type Sweeper struct {
	driver     ports.Scheduler
	releaser   StaleReleaser
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewSweeper returns a helper to start/stop the recurring sweep.
func NewSweeper(driver ports.Scheduler, releaser StaleReleaser, staleAfter time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{driver: driver, releaser: releaser, staleAfter: staleAfter, logger: logger}
}

// Start registers the sweep with the provided scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.driver == nil || s.releaser == nil || s.staleAfter <= 0 {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Sweep releases claims older than the stale threshold once.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.releaser.ReleaseStale(ctx, s.staleAfter)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
