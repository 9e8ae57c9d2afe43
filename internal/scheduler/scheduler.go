// Package scheduler owns the periodic trigger that sends due scheduled batches.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/config"
	"github.com/unclebandit/partnerline/internal/logx"
	"github.com/unclebandit/partnerline/internal/service"
)

// Runner processes every batch due at now.
type Runner interface {
	RunDueBatches(ctx context.Context, now time.Time) (service.BatchReport, error)
}

type Clock func() time.Time

type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	clock  Clock
	log    zerolog.Logger

	mu     sync.Mutex
	c      *cron.Cron
	cancel context.CancelFunc
}

// New builds a stopped scheduler. A nil clock means time.Now in UTC.
func New(cfg config.SchedulerConfig, runner Runner, clock Clock, log zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		clock:  clock,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the interval job and returns immediately. Calling Start on
// a running scheduler does nothing. Ticks use a context derived from ctx that
// Stop cancels.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	cl := logx.CronLogger{Log: s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(cron.Every(s.cfg.Interval), cron.FuncJob(func() {
		_, _ = s.Tick(runCtx)
	}))
	c.Start()

	s.c = c
	s.cancel = cancel
	s.log.Info().Dur("interval", s.cfg.Interval).Dur("lease_ttl", s.cfg.LeaseTTL).Msg("scheduler started")
	return nil
}

// Stop halts the trigger and waits for a running tick, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop().Done()
	select {
	case <-done:
		cancel()
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Tick runs one pass over the due batches at the clock's current time.
func (s *Scheduler) Tick(ctx context.Context) (service.BatchReport, error) {
	now := s.clock()
	report, err := s.runner.RunDueBatches(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Time("now", now).Msg("run due batches")
		return report, err
	}
	if len(report.Batches) == 0 {
		return report, nil
	}

	counts := report.Counts()
	s.log.Info().
		Int("batches", len(report.Batches)).
		Int("sent", counts[service.SendSent]).
		Int("opted_out", counts[service.SendOptedOut]).
		Int("failed", counts[service.SendFailed]).
		Int("not_found", counts[service.SendNotFound]).
		Msg("scheduled batches processed")
	return report, nil
}
