// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/userlock"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// Repository is the persistence the curator needs.
type Repository interface {
	ListActiveUsers(ctx context.Context) ([]types.User, error)
	ListCategories(ctx context.Context, userID int64, includeDeleted bool) ([]types.Category, error)
	ListCurationCandidates(ctx context.Context, userID int64, since time.Time, date string) ([]types.Article, error)
	GetEdition(ctx context.Context, userID int64, date string) (types.Edition, error)
	CommitEdition(ctx context.Context, userID int64, date string, st types.Structure) (int, error)
}

// BatchResult summarizes RebuildAll.
type BatchResult struct {
	Total      int `json:"total" yaml:"total"`
	Successful int `json:"successful" yaml:"successful"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Service regenerates and stores editions.
type Service struct {
	repo   Repository
	locker userlock.Locker
	cfg    types.CuratorConfig
	loc    *time.Location
	now    func() time.Time
	log    zerolog.Logger
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

// NewService returns a Service. A nil locker selects an in-process one.
func NewService(repo Repository, locker userlock.Locker, cfg types.CuratorConfig, opts ...Option) *Service {
	def := types.DefaultConfig().Curator
	if cfg.MinScore <= 0 {
		cfg.MinScore = def.MinScore
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.UncategorizedToday <= 0 {
		cfg.UncategorizedToday = def.UncategorizedToday
	}
	if locker == nil {
		locker = userlock.NewMemory()
	}
	s := &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		loc:    cfg.Location(),
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the configured location.
func (s *Service) Today() string {
	return types.DateOf(s.now(), s.loc)
}

// Rebuild regenerates the edition for (userID, date) and returns the stored
// structure. An empty date means today. Curation for one user is serialized
// through the locker.
func (s *Service) Rebuild(ctx context.Context, userID int64, date string) (types.Structure, error) {
	if date == "" {
		date = s.Today()
	}
	day, err := time.ParseInLocation(types.DateLayout, date, s.loc)
	if err != nil {
		return types.Structure{}, fmt.Errorf("invalid edition date %q: %w", date, err)
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return types.Structure{}, fmt.Errorf("locking user %d: %w", userID, err)
	}
	defer unlock()

	// Past dates look back from the end of that day rather than from now.
	anchor := s.now()
	if end := day.AddDate(0, 0, 1); end.Before(anchor) {
		anchor = end
	}
	since := anchor.Add(-s.cfg.Window)

	articles, err := s.repo.ListCurationCandidates(ctx, userID, since, date)
	if err != nil {
		return types.Structure{}, fmt.Errorf("loading candidates: %w", err)
	}
	categories, err := s.repo.ListCategories(ctx, userID, false)
	if err != nil {
		return types.Structure{}, fmt.Errorf("loading categories: %w", err)
	}
	prev := types.NewStructure()
	ed, err := s.repo.GetEdition(ctx, userID, date)
	switch {
	case err == nil:
		prev = ed.Structure
	case !errors.Is(err, types.ErrNotFound):
		return types.Structure{}, fmt.Errorf("loading edition: %w", err)
	}

	st := Curate(Input{
		Date:               date,
		Articles:           articles,
		Categories:         categories,
		Previous:           prev,
		MinScore:           s.cfg.MinScore,
		UncategorizedToday: s.cfg.UncategorizedToday,
	})
	if err := st.Validate(); err != nil {
		return types.Structure{}, err
	}
	if err := st.Contains(prev); err != nil {
		return types.Structure{}, err
	}

	added, err := s.repo.CommitEdition(ctx, userID, date, st)
	if err != nil {
		return types.Structure{}, fmt.Errorf("storing edition: %w", err)
	}
	s.log.Info().
		Int64("user_id", userID).
		Str("date", date).
		Int("candidates", len(articles)).
		Int("today", len(st.Today)).
		Int("sections", len(st.Categories)).
		Int("placed", st.Len()).
		Int("new_appearances", added).
		Msg("edition rebuilt")
	return st, nil
}

// RebuildAll rebuilds today's edition for every active user. A failure for
// one user is logged and counted without stopping the others.
func (s *Service) RebuildAll(ctx context.Context) (BatchResult, error) {
	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("listing users: %w", err)
	}
	date := s.Today()
	res := BatchResult{Total: len(users)}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := s.Rebuild(ctx, u.ID, date); err != nil {
			res.Failed++
			s.log.Error().Err(err).Int64("user_id", u.ID).Str("date", date).Msg("edition rebuild failed")
			continue
		}
		res.Successful++
	}
	s.log.Info().Int("total", res.Total).Int("successful", res.Successful).Int("failed", res.Failed).Msg("rebuilt all editions")
	return res, nil
}
