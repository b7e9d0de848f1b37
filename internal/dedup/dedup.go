// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup finds near-duplicate articles by title-embedding similarity
// and points each duplicate at one canonical original.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/oracle"
	"github.com/pdiddy/daily-curator/internal/similarity"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// Repository is the persistence the detector needs.
type Repository interface {
	SetEmbedding(ctx context.Context, id int64, e types.Embedding) error
	ListDuplicateCandidates(ctx context.Context, userID, excludeID int64, since time.Time) ([]types.Article, error)
	ListNonDuplicates(ctx context.Context, userID int64, since time.Time) ([]types.Article, error)
	MarkDuplicate(ctx context.Context, id, originalID int64) (bool, error)
}

// Match is a candidate at or above the similarity threshold.
type Match struct {
	Article    types.Article
	Similarity float64
}

// Detector marks duplicates for one process.
type Detector struct {
	repo            Repository
	embedder        oracle.Embedder
	threshold       float64
	window          time.Duration
	reprocessWindow time.Duration
	now             func() time.Time
	log             zerolog.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock replaces the wall clock used for candidate windows.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// New returns a Detector. Zero config values take the defaults.
func New(repo Repository, embedder oracle.Embedder, cfg types.DedupConfig, opts ...Option) *Detector {
	def := types.DefaultConfig().Dedup
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ReprocessWindow <= 0 {
		cfg.ReprocessWindow = def.ReprocessWindow
	}
	d := &Detector{
		repo:            repo,
		embedder:        embedder,
		threshold:       cfg.Threshold,
		window:          cfg.Window,
		reprocessWindow: cfg.ReprocessWindow,
		now:             time.Now,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EnsureEmbedding returns the article's title embedding, computing and
// persisting it when missing or unparseable. a is updated in place.
func (d *Detector) EnsureEmbedding(ctx context.Context, a *types.Article) ([]float64, error) {
	if vec, err := a.TitleEmbedding.Vector(); err == nil {
		return vec, nil
	} else if !errors.Is(err, types.ErrNoEmbedding) {
		d.log.Warn().Err(err).Int64("article_id", a.ID).Msg("stored embedding unreadable, recomputing")
	}
	if d.embedder == nil {
		return nil, types.ErrNoEmbedding
	}
	vec, err := d.embedder.Embed(ctx, a.Title)
	if err != nil {
		return nil, fmt.Errorf("embedding article %d: %w", a.ID, err)
	}
	e := types.NewEmbedding(vec)
	if err := d.repo.SetEmbedding(ctx, a.ID, e); err != nil {
		return nil, err
	}
	a.TitleEmbedding = e
	return vec, nil
}

// FindDuplicates returns candidates created at or after since whose
// similarity to vec is at least the threshold. Candidates with unreadable
// embeddings are skipped.
func (d *Detector) FindDuplicates(ctx context.Context, a *types.Article, vec []float64, since time.Time) ([]Match, error) {
	candidates, err := d.repo.ListDuplicateCandidates(ctx, a.UserID, a.ID, since)
	if err != nil {
		return nil, fmt.Errorf("listing duplicate candidates: %w", err)
	}
	var matches []Match
	for _, c := range candidates {
		cv, err := c.TitleEmbedding.Vector()
		if err != nil {
			d.log.Debug().Err(err).Int64("candidate", c.ID).Msg("skipping candidate embedding")
			continue
		}
		if sim := similarity.Cosine(vec, cv); sim >= d.threshold {
			matches = append(matches, Match{Article: c, Similarity: sim})
		}
	}
	return matches, nil
}

// Process checks a against the trailing window and, when a better original
// exists, marks a as its duplicate and returns that original. It returns
// nil when a stays canonical or when its embedding cannot be computed yet.
func (d *Detector) Process(ctx context.Context, a *types.Article) (*types.Article, error) {
	return d.process(ctx, a, d.now().Add(-d.window))
}

func (d *Detector) process(ctx context.Context, a *types.Article, since time.Time) (*types.Article, error) {
	if a.DuplicateOfID != nil && *a.DuplicateOfID == a.ID {
		d.log.Warn().Int64("article_id", a.ID).Msg("article references itself as duplicate, ignoring")
		return nil, nil
	}
	if a.IsDuplicate {
		return nil, nil
	}

	vec, err := d.EnsureEmbedding(ctx, a)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Deferred to the next cycle.
		d.log.Warn().Err(err).Int64("article_id", a.ID).Msg("no embedding, duplicate check deferred")
		return nil, nil
	}

	matches, err := d.FindDuplicates(ctx, a, vec, since)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	best := BestOriginal(a, matches)
	if best.ID == a.ID {
		return nil, nil
	}
	ok, err := d.repo.MarkDuplicate(ctx, a.ID, best.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		d.log.Debug().Int64("article_id", a.ID).Int64("original", best.ID).Msg("original no longer canonical, leaving article as is")
		return nil, nil
	}
	a.IsDuplicate = true
	a.DuplicateOfID = &best.ID
	d.log.Info().Int64("article_id", a.ID).Int64("original", best.ID).
		Float64("score", best.BaseScore()).Int("group", len(matches)+1).
		Msg("marked duplicate")
	return best, nil
}

// Reprocess runs duplicate detection over the user's non-duplicate articles
// created inside window (the configured reprocess window when zero), oldest
// first, and returns how many were newly marked.
func (d *Detector) Reprocess(ctx context.Context, userID int64, window time.Duration) (int, error) {
	if window <= 0 {
		window = d.reprocessWindow
	}
	since := d.now().Add(-window)
	articles, err := d.repo.ListNonDuplicates(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("listing articles for reprocessing: %w", err)
	}

	found := 0
	for i := range articles {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		original, err := d.process(ctx, &articles[i], since)
		if err != nil {
			return found, err
		}
		if original != nil {
			found++
		}
	}
	d.log.Info().Int64("user_id", userID).Int("articles", len(articles)).Int("duplicates", found).Msg("reprocessed duplicates")
	return found, nil
}

// BestOriginal elects the canonical article among a and its matches: the
// highest base score, then the earliest published time (unknown sorts
// last), then the earliest creation time, then the lowest id.
func BestOriginal(a *types.Article, matches []Match) *types.Article {
	best := a
	for i := range matches {
		c := &matches[i].Article
		if better(c, best) {
			best = c
		}
	}
	return best
}

func better(x, y *types.Article) bool {
	if sx, sy := x.BaseScore(), y.BaseScore(); sx != sy {
		return sx > sy
	}
	switch {
	case x.PublishedAt != nil && y.PublishedAt == nil:
		return true
	case x.PublishedAt == nil && y.PublishedAt != nil:
		return false
	case x.PublishedAt != nil && !x.PublishedAt.Equal(*y.PublishedAt):
		return x.PublishedAt.Before(*y.PublishedAt)
	}
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.Before(y.CreatedAt)
	}
	return x.ID < y.ID
}
