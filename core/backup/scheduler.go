package backup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"refurbot/core/logger"
	"log/slog"
)

// Scheduler triggers rotation runs: once immediately at start, then on a
// fixed period. Overlapping runs are skipped rather than stacked so a
// slow remote push cannot mutate the snapshot directory concurrently
// with the next run.
type Scheduler struct {
	svc      *Service
	cron     *cron.Cron
	interval time.Duration
	running  atomic.Bool
}

// NewScheduler wires a Service to a cron timer with the given period.
func NewScheduler(svc *Service, interval time.Duration) *Scheduler {
	return &Scheduler{
		svc:      svc,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		interval: interval,
	}
}

// Start performs the immediate startup run and arms the periodic timer.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("backup: interval must be positive, got %s", s.interval)
	}

	go s.runOnce(ctx)

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("backup: schedule %q: %w", spec, err)
	}
	s.cron.Start()

	logger.Info(ctx, component, "backup.scheduled",
		slog.String("status", "ok"),
		slog.Duration("interval", s.interval),
	)
	return nil
}

// Stop halts the timer and waits for in-flight timer-driven runs.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn(ctx, component, "backup.overlap",
			slog.String("status", "skip"),
			slog.String("cause", "previous run still in progress"),
		)
		return
	}
	defer s.running.Store(false)

	// a missing source already logged its own skip line inside Run
	if _, err := s.svc.Run(ctx); err != nil && !errors.Is(err, ErrSourceMissing) {
		logger.Error(ctx, component, "backup.run",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
