// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// VoteResult reports a downvote toggle.
type VoteResult struct {
	ArticleID int64      `json:"article_id" yaml:"article_id"`
	UserVote  types.Vote `json:"user_vote" yaml:"user_vote"`
	// Downvotes is the number of downvotes summarized by the rebuilt
	// prototypes; it is only computed when the toggle set a downvote.
	Downvotes int `json:"downvotes,omitempty" yaml:"downvotes,omitempty"`
}

// ToggleDownvote flips the article's vote between none and down. After a
// new downvote the owner's prototypes are rebuilt to report their size.
func (e *Engine) ToggleDownvote(ctx context.Context, articleID int64) (VoteResult, error) {
	a, err := e.repo.GetArticle(ctx, articleID)
	if err != nil {
		return VoteResult{}, err
	}
	vote := types.VoteDown
	if a.UserVote == types.VoteDown {
		vote = types.VoteNone
	}
	if err := e.repo.SetVote(ctx, a.ID, vote, e.now()); err != nil {
		return VoteResult{}, fmt.Errorf("recording vote: %w", err)
	}
	res := VoteResult{ArticleID: a.ID, UserVote: vote}

	// Only downvotes with an embedding feed the prototypes.
	if vote == types.VoteDown && a.TitleEmbedding.IsEmpty() {
		if _, err := e.detector.EnsureEmbedding(ctx, &a); err != nil {
			e.log.Warn().Err(err).Int64("article_id", a.ID).Msg("downvoted article has no embedding yet")
		}
	}

	if vote == types.VoteDown {
		n, err := e.Adjuster(a.UserID).Rebuild(ctx)
		if err != nil {
			return res, fmt.Errorf("rebuilding prototypes: %w", err)
		}
		res.Downvotes = n
	}
	e.log.Info().Int64("article_id", a.ID).Int64("user_id", a.UserID).Int("vote", int(vote)).Msg("vote toggled")
	return res, nil
}

// RebuildPrototypes recomputes the user's dislike prototypes and returns
// the number of downvotes they summarize.
func (e *Engine) RebuildPrototypes(ctx context.Context, userID int64) (int, error) {
	if _, err := e.repo.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	return e.Adjuster(userID).Rebuild(ctx)
}

// ExplainAdjustment describes why the article's score was lowered.
func (e *Engine) ExplainAdjustment(ctx context.Context, articleID int64) (string, error) {
	a, err := e.repo.GetArticle(ctx, articleID)
	if err != nil {
		return "", err
	}
	return e.Adjuster(a.UserID).Explain(ctx, &a)
}

// ReprocessDuplicates runs bulk duplicate detection for one user.
func (e *Engine) ReprocessDuplicates(ctx context.Context, userID int64, window time.Duration) (int, error) {
	return e.detector.Reprocess(ctx, userID, window)
}
