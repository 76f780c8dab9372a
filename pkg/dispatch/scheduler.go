package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Processor runs scans and expiry sweeps. *Engine implements it.
type Processor interface {
	ProcessScheduledNotifications(ctx context.Context) (ScanResult, error)
	SweepExpired(ctx context.Context) (int, error)
}

// Scheduler triggers scans on a fixed interval.
type Scheduler struct {
	processor Processor
	interval  time.Duration
	sweep     bool
	logger    *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the time between scans.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithExpirySweep toggles deletion of expired in-app records after each scan.
func WithExpirySweep(enabled bool) SchedulerOption {
	return func(s *Scheduler) {
		s.sweep = enabled
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a Scheduler for p.
func NewScheduler(p Processor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		processor: p,
		interval:  DefaultConfig().SchedulerInterval,
		sweep:     true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("scheduler"))
	return s
}

// Start scans immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "scheduler started",
		slog.Duration("interval", s.interval),
	)

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelInfo, "scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Run returns a function suitable for errgroup.Go. A cancelled context is
// a clean stop.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		err := s.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.processor.ProcessScheduledNotifications(ctx)
	switch {
	case errors.Is(err, ErrScanInProgress):
		s.logger.LogAttrs(ctx, slog.LevelDebug, "scan skipped, another scan is running")
	case err != nil && ctx.Err() == nil:
		s.logger.LogAttrs(ctx, slog.LevelError, "scheduled scan failed", logger.Error(err))
	}

	if !s.sweep || ctx.Err() != nil {
		return
	}
	n, err := s.processor.SweepExpired(ctx)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "expiry sweep failed", logger.Error(err))
		return
	}
	if n > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "expired notifications removed", logger.Count("count", n))
	}
}
