// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package downvote lowers the relevance of articles that resemble content a
// user downvoted. Downvoted embeddings are summarized into at most a fixed
// number of prototypes (k-means centroids) and each new article is compared
// against those instead of every downvote.
package downvote

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/oracle"
	"github.com/pdiddy/daily-curator/internal/rategate"
	"github.com/pdiddy/daily-curator/internal/similarity"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// NoAdjustmentText is returned when asked to explain an unadjusted article.
const NoAdjustmentText = "No score adjustment was applied to this article."

// Repository is the persistence the adjuster needs.
type Repository interface {
	ListDownvoted(ctx context.Context, userID int64) ([]types.Article, error)
}

// Gate admits explanation calls under the shared token budget.
type Gate interface {
	Call(ctx context.Context, estimatedTokens int, fn func(ctx context.Context) (int, error)) error
}

// Adjustment is the outcome of Apply for one article.
type Adjustment struct {
	Adjusted   *float64
	Reason     *string
	Similarity float64
	Penalty    float64
	// MostSimilar is the recent downvoted article closest to the input, if any.
	MostSimilar *types.Article
}

// Penalized reports whether a penalty was applied.
func (a Adjustment) Penalized() bool { return a.Penalty > 0 }

type downvoted struct {
	article types.Article
	vec     []float64
}

// Adjuster holds the prototypes of one user. Prototypes are computed on
// first use and cached until Invalidate or Rebuild.
type Adjuster struct {
	userID    int64
	repo      Repository
	completer oracle.Completer
	gate      Gate
	cfg       types.DownvoteConfig
	kmeans    similarity.KMeansConfig
	log       zerolog.Logger

	mu         sync.Mutex
	built      bool
	prototypes [][]float64
	recent     []downvoted
	count      int
}

// Option customizes an Adjuster.
type Option func(*Adjuster)

// WithExplainer enables oracle explanations, gated by g when non-nil.
func WithExplainer(c oracle.Completer, g Gate) Option {
	return func(a *Adjuster) {
		a.completer = c
		a.gate = g
	}
}

// WithKMeans overrides the clustering settings.
func WithKMeans(cfg similarity.KMeansConfig) Option {
	return func(a *Adjuster) { a.kmeans = cfg }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Adjuster) { a.log = log }
}

// New returns an Adjuster for userID. Zero config values take the defaults.
func New(repo Repository, userID int64, cfg types.DownvoteConfig, opts ...Option) *Adjuster {
	def := types.DefaultConfig().Downvote
	if cfg.MaxPrototypes <= 0 {
		cfg.MaxPrototypes = def.MaxPrototypes
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MaxPenalty <= 0 {
		cfg.MaxPenalty = def.MaxPenalty
	}
	if cfg.RecentScan <= 0 {
		cfg.RecentScan = def.RecentScan
	}
	a := &Adjuster{
		userID: userID,
		repo:   repo,
		cfg:    cfg,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// UserID returns the user the adjuster serves.
func (a *Adjuster) UserID() int64 { return a.userID }

// Invalidate drops the cached prototypes.
func (a *Adjuster) Invalidate() {
	a.mu.Lock()
	a.built = false
	a.prototypes = nil
	a.recent = nil
	a.count = 0
	a.mu.Unlock()
}

// Rebuild recomputes the prototypes and returns the number of downvoted
// articles they summarize.
func (a *Adjuster) Rebuild(ctx context.Context) (int, error) {
	a.Invalidate()
	if _, err := a.Prototypes(ctx); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count, nil
}

// Prototypes returns the cached prototypes, computing them when needed.
func (a *Adjuster) Prototypes(ctx context.Context) ([][]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return a.prototypes, nil
	}

	articles, err := a.repo.ListDownvoted(ctx, a.userID)
	if err != nil {
		return nil, fmt.Errorf("loading downvoted articles: %w", err)
	}
	var vecs [][]float64
	var recent []downvoted
	for _, d := range articles {
		vec, err := d.TitleEmbedding.Vector()
		if err != nil {
			a.log.Debug().Err(err).Int64("article_id", d.ID).Msg("skipping downvote without usable embedding")
			continue
		}
		vecs = append(vecs, vec)
		// ListDownvoted returns the most recent votes first.
		if len(recent) < a.cfg.RecentScan {
			recent = append(recent, downvoted{article: d, vec: vec})
		}
	}

	protos, err := a.summarize(vecs)
	if err != nil {
		return nil, err
	}
	a.prototypes = protos
	a.recent = recent
	a.count = len(vecs)
	a.built = true
	a.log.Debug().Int64("user_id", a.userID).Int("downvotes", len(vecs)).Int("prototypes", len(protos)).Msg("built dislike prototypes")
	return protos, nil
}

func (a *Adjuster) summarize(vecs [][]float64) ([][]float64, error) {
	if len(vecs) == 0 {
		return nil, nil
	}
	if len(vecs) <= a.cfg.MaxPrototypes {
		return vecs, nil
	}
	k := max(1, min(a.cfg.MaxPrototypes, len(vecs)/3))
	centroids, err := similarity.KMeans(vecs, k, a.kmeans)
	if err != nil {
		return nil, fmt.Errorf("clustering downvotes: %w", err)
	}
	return centroids, nil
}

// FindMostSimilar returns the highest similarity between the article and
// any prototype, plus the most similar of the recent downvoted articles
// (nil when none is similar at all). It returns (0, nil) when the article
// has no embedding or the user has no downvotes.
func (a *Adjuster) FindMostSimilar(ctx context.Context, art *types.Article) (float64, *types.Article, error) {
	vec, err := art.TitleEmbedding.Vector()
	if err != nil {
		return 0, nil, nil
	}
	protos, err := a.Prototypes(ctx)
	if err != nil {
		return 0, nil, err
	}
	if len(protos) == 0 {
		return 0, nil, nil
	}
	maxSim, _ := similarity.Max(vec, protos)

	a.mu.Lock()
	recent := a.recent
	a.mu.Unlock()

	var most *types.Article
	best := 0.0
	for i := range recent {
		if s := similarity.Cosine(vec, recent[i].vec); s > best {
			best = s
			d := recent[i].article
			most = &d
		}
	}
	return maxSim, most, nil
}

// Apply computes the adjusted score of art and stores it, together with the
// reason, on art. Articles without a base score or embedding keep their
// base score.
func (a *Adjuster) Apply(ctx context.Context, art *types.Article) (Adjustment, error) {
	noop := func() Adjustment {
		art.AdjustedScore = art.RelevanceScore
		art.AdjustmentReason = nil
		return Adjustment{Adjusted: art.RelevanceScore}
	}
	if art.RelevanceScore == nil || *art.RelevanceScore == 0 || art.TitleEmbedding.IsEmpty() {
		return noop(), nil
	}

	sim, most, err := a.FindMostSimilar(ctx, art)
	if err != nil {
		return Adjustment{}, err
	}
	if sim <= a.cfg.Threshold {
		adj := noop()
		adj.Similarity = sim
		adj.MostSimilar = most
		return adj, nil
	}

	base := *art.RelevanceScore
	penalty := math.Min(a.cfg.MaxPenalty, (sim-a.cfg.Threshold)*2.0)
	adjusted := math.Max(0, base-penalty)
	reason := Reason(sim, most)

	art.AdjustedScore = &adjusted
	art.AdjustmentReason = &reason
	a.log.Info().
		Int64("article_id", art.ID).
		Float64("similarity", sim).
		Float64("penalty", penalty).
		Float64("base", base).
		Float64("adjusted", adjusted).
		Msg("downvote penalty applied")
	return Adjustment{
		Adjusted:    &adjusted,
		Reason:      &reason,
		Similarity:  sim,
		Penalty:     penalty,
		MostSimilar: most,
	}, nil
}

// Reason is the short text stored with a penalized article.
func Reason(sim float64, most *types.Article) string {
	if most != nil {
		return fmt.Sprintf("Similar to downvoted: '%s...' (similarity: %s)",
			types.Truncate(most.DisplayTitle(), 60), oracle.Percent(sim))
	}
	return fmt.Sprintf("Similar to downvoted content (similarity: %s)", oracle.Percent(sim))
}

// FallbackExplanation is used when the oracle cannot explain an adjustment.
func FallbackExplanation(sim float64, most *types.Article) string {
	return fmt.Sprintf("This article was scored lower because it's %s similar to '%s...', "+
		"which you previously downvoted. Both articles appear to cover related topics or themes.",
		oracle.Percent(sim), types.Truncate(most.DisplayTitle(), 60))
}

// Explain returns a natural-language account of why art was penalized.
// Oracle failures fall back to a templated sentence; only context
// cancellation is returned as an error.
func (a *Adjuster) Explain(ctx context.Context, art *types.Article) (string, error) {
	if art.AdjustmentReason == nil || strings.TrimSpace(*art.AdjustmentReason) == "" {
		return NoAdjustmentText, nil
	}
	sim, most, err := a.FindMostSimilar(ctx, art)
	if err != nil {
		return "", err
	}
	if most == nil {
		return *art.AdjustmentReason, nil
	}
	if a.completer == nil {
		return FallbackExplanation(sim, most), nil
	}

	p, err := oracle.ExplainPrompt(oracle.ExplainInput{Article: art, Downvoted: most, Similarity: sim})
	if err != nil {
		return FallbackExplanation(sim, most), nil
	}
	var text string
	call := func(ctx context.Context) (int, error) {
		c, err := a.completer.Complete(ctx, p)
		if err != nil {
			return 0, err
		}
		text = strings.TrimSpace(c.Text)
		return c.Tokens(), nil
	}
	if a.gate != nil {
		err = a.gate.Call(ctx, rategate.EstimateRequest(p.System, p.User, p.MaxTokens), call)
	} else {
		_, err = call(ctx)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.log.Warn().Err(err).Int64("article_id", art.ID).Msg("explanation oracle failed, using fallback")
		return FallbackExplanation(sim, most), nil
	}
	if text == "" {
		return FallbackExplanation(sim, most), nil
	}
	return text, nil
}
