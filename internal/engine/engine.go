// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs the scoring pipeline over unscored articles: score
// with the oracle, persist, detect duplicates, apply the downvote penalty,
// persist again. Articles are processed concurrently; the rate gate bounds
// oracle calls and serializes work on any single article. The writes of one
// article happen under its owner's curation lock, so an edition rebuild
// never sees an article that is scored but not yet deduplicated.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/dedup"
	"github.com/pdiddy/daily-curator/internal/downvote"
	"github.com/pdiddy/daily-curator/internal/oracle"
	"github.com/pdiddy/daily-curator/internal/rategate"
	"github.com/pdiddy/daily-curator/internal/store"
	"github.com/pdiddy/daily-curator/internal/userlock"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// Repository is the persistence the engine needs.
type Repository interface {
	dedup.Repository
	downvote.Repository

	GetUser(ctx context.Context, id int64) (types.User, error)
	ListCategories(ctx context.Context, userID int64, includeDeleted bool) ([]types.Category, error)
	GetArticle(ctx context.Context, id int64) (types.Article, error)
	ListUnscored(ctx context.Context, f store.UnscoredFilter) ([]types.Article, error)
	SaveScoring(ctx context.Context, id int64, r types.ScoreResult) error
	SaveAdjustment(ctx context.Context, id int64, adjusted *float64, reason *string) error
	SetVote(ctx context.Context, id int64, vote types.Vote, at time.Time) error
}

// BatchRequest selects the articles of one processBatch call. With no ids
// the unscored articles of the trailing batch window are used.
type BatchRequest struct {
	ArticleIDs []int64 `json:"article_ids,omitempty" yaml:"article_ids,omitempty"`
	UserID     *int64  `json:"user_id,omitempty" yaml:"user_id,omitempty"`
}

// BatchResult reports one processBatch call.
type BatchResult struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	Processed  int    `json:"processed" yaml:"processed"`
	Fallbacks  int    `json:"fallbacks" yaml:"fallbacks"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
	Penalized  int    `json:"penalized" yaml:"penalized"`
	Skipped    int    `json:"skipped" yaml:"skipped"`
}

// Engine wires the oracle, rate gate, duplicate detector and downvote
// adjusters together.
type Engine struct {
	repo      Repository
	completer oracle.Completer
	gate      *rategate.Gate
	detector  *dedup.Detector
	locker    userlock.Locker
	cfg       types.Config
	now       func() time.Time
	log       zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithUserLocker sets the per-user lock shared with the curator.
func WithUserLocker(l userlock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// New returns an Engine. The gate is shared by every worker and must be
// the only gate in front of completer.
func New(repo Repository, completer oracle.Completer, embedder oracle.Embedder, gate *rategate.Gate, cfg types.Config, opts ...Option) *Engine {
	def := types.DefaultConfig()
	if cfg.Batch.Limit <= 0 {
		cfg.Batch.Limit = def.Batch.Limit
	}
	if cfg.Batch.Window <= 0 {
		cfg.Batch.Window = def.Batch.Window
	}
	if cfg.AI.MaxInputTokens <= 0 {
		cfg.AI.MaxInputTokens = def.AI.MaxInputTokens
	}
	if gate == nil {
		gate = rategate.New(cfg.Rate.TPMLimit, cfg.Rate.MaxConcurrent)
	}
	e := &Engine{
		repo:      repo,
		completer: completer,
		gate:      gate,
		cfg:       cfg,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locker == nil {
		e.locker = userlock.NewMemory()
	}
	e.detector = dedup.New(repo, embedder, cfg.Dedup, dedup.WithClock(e.now), dedup.WithLogger(e.log))
	return e
}

// Detector returns the duplicate detector used by the pipeline.
func (e *Engine) Detector() *dedup.Detector { return e.detector }

// Adjuster returns a downvote adjuster for userID. Adjusters are not kept
// across batches: votes may change in another process sharing the store.
func (e *Engine) Adjuster(userID int64) *downvote.Adjuster {
	return downvote.New(e.repo, userID, e.cfg.Downvote,
		downvote.WithExplainer(e.completer, e.gate),
		downvote.WithLogger(e.log))
}

// userContext is what scoring needs about an article's owner, loaded once
// per user and batch.
type userContext struct {
	interests  string
	categories []types.Category
	valid      map[int64]bool
	adjuster   *downvote.Adjuster
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeScored
	outcomeFallback
)

type articleResult struct {
	outcome   outcome
	duplicate bool
	penalized bool
}

// ProcessBatch scores the selected unscored articles and returns counts.
// Oracle failures are absorbed per article; only context cancellation and
// storage failures while selecting the batch are returned.
func (e *Engine) ProcessBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	res := BatchResult{RunID: uuid.NewString()}
	log := e.log.With().Str("run_id", res.RunID).Logger()

	filter := store.UnscoredFilter{
		ArticleIDs: req.ArticleIDs,
		UserID:     req.UserID,
		Since:      e.now().Add(-e.cfg.Batch.Window),
		Limit:      e.cfg.Batch.Limit,
	}
	articles, err := e.repo.ListUnscored(ctx, filter)
	if err != nil {
		return res, fmt.Errorf("listing unscored articles: %w", err)
	}
	if len(articles) == 0 {
		log.Debug().Msg("no unscored articles")
		return res, nil
	}

	users := make(map[int64]*userContext)
	for _, a := range articles {
		if _, ok := users[a.UserID]; ok {
			continue
		}
		uc, err := e.loadUser(ctx, a.UserID)
		if err != nil {
			return res, err
		}
		users[a.UserID] = uc
	}

	start := e.now()
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, a := range articles {
		wg.Add(1)
		go func(id int64, uc *userContext) {
			defer wg.Done()
			r, err := e.processArticle(ctx, id, uc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Skipped++
				if ctx.Err() == nil {
					log.Error().Err(err).Int64("article_id", id).Msg("processing article failed")
				}
				return
			}
			switch r.outcome {
			case outcomeSkipped:
				res.Skipped++
				return
			case outcomeFallback:
				res.Fallbacks++
			}
			res.Processed++
			if r.duplicate {
				res.Duplicates++
			}
			if r.penalized {
				res.Penalized++
			}
		}(a.ID, users[a.UserID])
	}
	wg.Wait()

	log.Info().
		Int("selected", len(articles)).
		Int("processed", res.Processed).
		Int("fallbacks", res.Fallbacks).
		Int("duplicates", res.Duplicates).
		Int("penalized", res.Penalized).
		Int("skipped", res.Skipped).
		Dur("elapsed", e.now().Sub(start)).
		Msg("batch processed")
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) loadUser(ctx context.Context, userID int64) (*userContext, error) {
	u, err := e.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", userID, err)
	}
	cats, err := e.repo.ListCategories(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("loading categories of user %d: %w", userID, err)
	}
	uc := &userContext{
		interests:  u.Interests,
		categories: cats,
		valid:      make(map[int64]bool, len(cats)),
		adjuster:   e.Adjuster(userID),
	}
	for _, c := range cats {
		uc.valid[c.ID] = true
	}
	return uc, nil
}

// processArticle runs the pipeline for one article under its lock. The
// article is re-read inside the lock so that a concurrent worker that
// already scored it is detected. Oracle and embedding calls happen before
// the owner's lock is taken; every write after SaveScoring happens under it.
func (e *Engine) processArticle(ctx context.Context, id int64, uc *userContext) (articleResult, error) {
	var r articleResult
	err := e.gate.WithArticleLock(ctx, id, func(ctx context.Context) error {
		a, err := e.repo.GetArticle(ctx, id)
		if err != nil {
			return err
		}
		if a.IsScored() {
			return nil
		}

		score, fallback, err := e.score(ctx, &a, uc)
		if err != nil {
			return err
		}
		if _, err := e.detector.EnsureEmbedding(ctx, &a); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		unlock, err := e.locker.Lock(ctx, a.UserID)
		if err != nil {
			return fmt.Errorf("locking user %d: %w", a.UserID, err)
		}
		defer unlock()

		if err := e.repo.SaveScoring(ctx, a.ID, score); err != nil {
			if errors.Is(err, types.ErrAlreadyScored) {
				return nil
			}
			return err
		}
		r.outcome = outcomeScored
		if fallback {
			r.outcome = outcomeFallback
		}
		applyScore(&a, score)

		original, err := e.detector.Process(ctx, &a)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Warn().Err(err).Int64("article_id", a.ID).Msg("duplicate detection failed")
		}
		r.duplicate = original != nil

		adj, err := uc.adjuster.Apply(ctx, &a)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Warn().Err(err).Int64("article_id", a.ID).Msg("downvote adjustment failed")
			return nil
		}
		r.penalized = adj.Penalized()
		return e.repo.SaveAdjustment(ctx, a.ID, a.AdjustedScore, a.AdjustmentReason)
	})
	return r, err
}

// score asks the oracle for a verdict through the gate. Any failure other
// than cancellation yields the fallback verdict.
func (e *Engine) score(ctx context.Context, a *types.Article, uc *userContext) (types.ScoreResult, bool, error) {
	p, err := oracle.ScorePrompt(oracle.ScoreInput{
		Article:        a,
		Interests:      uc.interests,
		Categories:     uc.categories,
		MaxInputTokens: e.cfg.AI.MaxInputTokens,
	})
	if err != nil {
		e.log.Warn().Err(err).Int64("article_id", a.ID).Msg("building score prompt failed, using fallback")
		return types.FallbackScore(a), true, nil
	}

	var res types.ScoreResult
	err = e.gate.Call(ctx, rategate.EstimateRequest(p.System, p.User, rategate.DefaultResponseBuffer),
		func(ctx context.Context) (int, error) {
			c, err := e.completer.Complete(ctx, p)
			if err != nil {
				return 0, err
			}
			res, err = oracle.ParseScore(c.Text)
			return c.Tokens(), err
		})
	if err != nil {
		if ctx.Err() != nil {
			return types.ScoreResult{}, false, ctx.Err()
		}
		e.log.Warn().Err(err).Int64("article_id", a.ID).Msg("scoring oracle failed, using fallback")
		return types.FallbackScore(a), true, nil
	}

	if res.CategoryID != nil && !uc.valid[*res.CategoryID] {
		e.log.Debug().Int64("article_id", a.ID).Int64("category", *res.CategoryID).Msg("discarding unknown category")
		res.CategoryID = nil
	}
	res.Score = oracle.Clamp(res.Score)
	return res, false, nil
}

// applyScore mirrors what SaveScoring persisted onto a.
func applyScore(a *types.Article, r types.ScoreResult) {
	a.CuratedTitle = r.Title
	a.CuratedSubtitle = r.Subtitle
	summary := r.Summary
	a.Summary = &summary
	score := r.Score
	a.RelevanceScore = &score
	if r.CategoryID != nil {
		a.CategoryID = r.CategoryID
	}
}
