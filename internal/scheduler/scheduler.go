// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scheduler drives the periodic cycle: retention, scoring, then
// edition rebuilds for every active user. Cycles never overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/curator"
	"github.com/pdiddy/daily-curator/internal/engine"
	"github.com/pdiddy/daily-curator/internal/retention"
)

// ErrBusy is returned when a cycle is requested while one is running.
var ErrBusy = errors.New("a cycle is already running")

// Retention runs the archive and purge passes.
type Retention interface {
	Run(ctx context.Context) (retention.Result, error)
}

// Processor scores unscored articles.
type Processor interface {
	ProcessBatch(ctx context.Context, req engine.BatchRequest) (engine.BatchResult, error)
}

// Curator rebuilds today's editions.
type Curator interface {
	RebuildAll(ctx context.Context) (curator.BatchResult, error)
}

// CycleResult reports one cycle.
type CycleResult struct {
	Retention retention.Result    `json:"retention" yaml:"retention"`
	Batch     engine.BatchResult  `json:"batch" yaml:"batch"`
	Editions  curator.BatchResult `json:"editions" yaml:"editions"`
	Elapsed   time.Duration       `json:"elapsed" yaml:"elapsed"`
}

// Scheduler runs cycles on a cron schedule or on demand.
type Scheduler struct {
	retention Retention
	processor Processor
	curator   Curator
	now       func() time.Time
	log       zerolog.Logger

	running atomic.Bool

	mu   sync.Mutex
	cron *cron.Cron
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// New returns a Scheduler.
func New(r Retention, p Processor, c Curator, opts ...Option) *Scheduler {
	s := &Scheduler{retention: r, processor: p, curator: c, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle runs retention, scoring and edition rebuilds in order. A failed
// step is logged and the cycle moves on; the failures are returned joined.
// It returns ErrBusy without doing anything if a cycle is in progress.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("cycle already running, skipping")
		return CycleResult{}, ErrBusy
	}
	defer s.running.Store(false)

	start := s.now()
	var (
		res  CycleResult
		errs []error
	)

	if r, err := s.retention.Run(ctx); err != nil {
		s.log.Error().Err(err).Msg("retention failed")
		errs = append(errs, fmt.Errorf("retention: %w", err))
	} else {
		res.Retention = r
	}

	b, err := s.processor.ProcessBatch(ctx, engine.BatchRequest{})
	if err != nil {
		s.log.Error().Err(err).Msg("batch processing failed")
		errs = append(errs, fmt.Errorf("processing batch: %w", err))
	}
	res.Batch = b

	if ctx.Err() == nil {
		if e, err := s.curator.RebuildAll(ctx); err != nil {
			s.log.Error().Err(err).Msg("edition rebuild failed")
			errs = append(errs, fmt.Errorf("rebuilding editions: %w", err))
		} else {
			res.Editions = e
		}
	}

	res.Elapsed = s.now().Sub(start)
	s.log.Info().
		Int64("archived", res.Retention.Archived).
		Int64("purged", res.Retention.Purged).
		Int("scored", res.Batch.Processed).
		Int("editions", res.Editions.Successful).
		Int("edition_failures", res.Editions.Failed).
		Dur("elapsed", res.Elapsed).
		Msg("cycle complete")
	return res, errors.Join(errs...)
}

// Start schedules RunCycle with spec (robfig/cron syntax, e.g.
// "@every 60m"). Triggers that fire while a cycle runs are skipped.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	logger := cron.PrintfLogger(&s.log)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrBusy) {
			s.log.Error().Err(err).Msg("scheduled cycle finished with errors")
		}
	}); err != nil {
		return fmt.Errorf("adding cron job %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("spec", spec).Msg("scheduler started")
	return nil
}

// Stop stops the schedule and waits for a running cycle to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
