// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retention ages articles out: old unsaved articles are first
// archived (hidden from curation) and later deleted. Saved articles are
// never touched.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/store"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// Repository is the persistence retention needs.
type Repository interface {
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (store.PurgeResult, error)
	Stats(ctx context.Context, archiveCutoff, purgeCutoff time.Time) (store.RetentionStats, error)
}

// Result reports one retention run.
type Result struct {
	Archived int64 `json:"archived" yaml:"archived"`
	Purged   int64 `json:"purged" yaml:"purged"`
	Unlinked int64 `json:"unlinked" yaml:"unlinked"`
}

// Stats is the dry-run report.
type Stats struct {
	ToArchive int64 `json:"to_archive" yaml:"to_archive"`
	ToPurge   int64 `json:"to_purge" yaml:"to_purge"`
	SavedKept int64 `json:"saved_kept" yaml:"saved_kept"`
}

// Service runs the archive and purge passes.
type Service struct {
	repo Repository
	cfg  types.RetentionConfig
	now  func() time.Time
	log  zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a Service. Zero durations take the defaults.
func New(repo Repository, cfg types.RetentionConfig, opts ...Option) *Service {
	def := types.DefaultConfig().Retention
	if cfg.ArchiveAfter <= 0 {
		cfg.ArchiveAfter = def.ArchiveAfter
	}
	if cfg.KeepFor <= 0 {
		cfg.KeepFor = def.KeepFor
	}
	s := &Service{repo: repo, cfg: cfg, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) cutoffs() (archive, purge time.Time) {
	now := s.now()
	return now.Add(-s.cfg.ArchiveAfter), now.Add(-s.cfg.KeepFor)
}

// Archive runs the archive pass.
func (s *Service) Archive(ctx context.Context) (int64, error) {
	cutoff, _ := s.cutoffs()
	n, err := s.repo.ArchiveOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("archived", n).Time("cutoff", cutoff).Msg("archive pass complete")
	return n, nil
}

// Purge runs the purge pass. Duplicate references to purged articles are
// cleared in the same transaction as the delete.
func (s *Service) Purge(ctx context.Context) (store.PurgeResult, error) {
	_, cutoff := s.cutoffs()
	res, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return store.PurgeResult{}, err
	}
	s.log.Info().Int64("purged", res.Deleted).Int64("unlinked", res.Unlinked).Time("cutoff", cutoff).Msg("purge pass complete")
	return res, nil
}

// Run archives then purges.
func (s *Service) Run(ctx context.Context) (Result, error) {
	archived, err := s.Archive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("archive pass: %w", err)
	}
	purged, err := s.Purge(ctx)
	if err != nil {
		return Result{Archived: archived}, fmt.Errorf("purge pass: %w", err)
	}
	return Result{Archived: archived, Purged: purged.Deleted, Unlinked: purged.Unlinked}, nil
}

// DryRun reports what Run would do without changing anything.
func (s *Service) DryRun(ctx context.Context) (Stats, error) {
	archive, purge := s.cutoffs()
	st, err := s.repo.Stats(ctx, archive, purge)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ToArchive: st.ToArchive, ToPurge: st.ToPurge, SavedKept: st.SavedKept}, nil
}
