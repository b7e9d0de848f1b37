// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/daily-curator/pkg/types"
)

var articleColumns = []string{
	"id", "user_id", "feed_id", "category_id", "link", "title", "description",
	"content", "author", "published_at", "created_at", "curated_title",
	"curated_subtitle", "summary", "relevance_score", "title_embedding",
	"is_duplicate", "duplicate_of_id", "user_vote", "vote_updated_at",
	"adjusted_score", "adjustment_reason", "appearances", "is_read",
	"is_archived", "is_saved",
}

// InsertArticle stores a newly ingested article. It reports false without
// error when the user already has an article with the same link.
func (s *Store) InsertArticle(ctx context.Context, a *types.Article) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (user_id, feed_id, category_id, link, title, description,
			content, author, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, link) DO NOTHING`,
		a.UserID, a.FeedID, a.CategoryID, a.Link, a.Title, a.Description,
		a.Content, a.Author, formatTimePtr(a.PublishedAt), formatTime(a.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("inserting article %q: %w", a.Link, err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return false, fmt.Errorf("reading article id: %w", err)
	}
	return true, nil
}

// GetArticle returns the article with id or types.ErrNotFound.
func (s *Store) GetArticle(ctx context.Context, id int64) (types.Article, error) {
	articles, err := s.listArticles(ctx, sq.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return types.Article{}, err
	}
	if len(articles) == 0 {
		return types.Article{}, fmt.Errorf("article %d: %w", id, types.ErrNotFound)
	}
	return articles[0], nil
}

// GetArticles returns the articles with the given ids keyed by id. Missing
// ids are absent from the map.
func (s *Store) GetArticles(ctx context.Context, ids []int64) (map[int64]types.Article, error) {
	out := make(map[int64]types.Article, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	articles, err := s.listArticles(ctx, sq.Select(articleColumns...).From("articles").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, a := range articles {
		out[a.ID] = a
	}
	return out, nil
}

// UnscoredFilter selects articles for one processing batch.
type UnscoredFilter struct {
	// ArticleIDs restricts the batch; when empty, Since applies instead.
	ArticleIDs []int64
	// UserID restricts the batch to one user when non-nil.
	UserID *int64
	// Since is the trailing creation window used when ArticleIDs is empty.
	Since time.Time
	// Limit caps the batch size.
	Limit int
}

// ListUnscored returns articles without a summary matching f, oldest first.
func (s *Store) ListUnscored(ctx context.Context, f UnscoredFilter) ([]types.Article, error) {
	where := sq.And{sq.Eq{"summary": nil}}
	if len(f.ArticleIDs) > 0 {
		where = append(where, sq.Eq{"id": f.ArticleIDs})
	} else {
		where = append(where, sq.GtOrEq{"created_at": formatTime(f.Since)})
	}
	if f.UserID != nil {
		where = append(where, sq.Eq{"user_id": *f.UserID})
	}
	b := sq.Select(articleColumns...).From("articles").Where(where).OrderBy("created_at", "id")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	return s.listArticles(ctx, b)
}

// SaveScoring persists the oracle's verdict. A nil category id keeps the
// current category. It returns types.ErrAlreadyScored when another worker
// stored a result first.
func (s *Store) SaveScoring(ctx context.Context, id int64, r types.ScoreResult) error {
	n, err := execBuilder(ctx, s.db, sq.Update("articles").
		Set("curated_title", r.Title).
		Set("curated_subtitle", r.Subtitle).
		Set("summary", r.Summary).
		Set("relevance_score", r.Score).
		Set("category_id", sq.Expr("COALESCE(?, category_id)", r.CategoryID)).
		Where(sq.Eq{"id": id, "summary": nil}))
	if err != nil {
		return fmt.Errorf("saving score for article %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", id, types.ErrAlreadyScored)
	}
	return nil
}

// SetEmbedding stores the title embedding.
func (s *Store) SetEmbedding(ctx context.Context, id int64, e types.Embedding) error {
	_, err := execBuilder(ctx, s.db, sq.Update("articles").Set("title_embedding", string(e)).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("saving embedding for article %d: %w", id, err)
	}
	return nil
}

// ListDuplicateCandidates returns the user's non-duplicate articles with an
// embedding created at or after since, excluding excludeID.
func (s *Store) ListDuplicateCandidates(ctx context.Context, userID, excludeID int64, since time.Time) ([]types.Article, error) {
	return s.listArticles(ctx, sq.Select(articleColumns...).From("articles").Where(sq.And{
		sq.Eq{"user_id": userID, "is_duplicate": 0},
		sq.NotEq{"id": excludeID, "title_embedding": nil},
		sq.GtOrEq{"created_at": formatTime(since)},
	}).OrderBy("created_at", "id"))
}

// ListNonDuplicates returns the user's non-duplicate articles created at or
// after since, oldest first.
func (s *Store) ListNonDuplicates(ctx context.Context, userID int64, since time.Time) ([]types.Article, error) {
	return s.listArticles(ctx, sq.Select(articleColumns...).From("articles").Where(sq.And{
		sq.Eq{"user_id": userID, "is_duplicate": 0},
		sq.GtOrEq{"created_at": formatTime(since)},
	}).OrderBy("created_at", "id"))
}

// MarkDuplicate points id at originalID. The update only applies while id is
// not already a duplicate and the original is itself canonical and owned by
// the same user, so two articles can never point at each other. It reports
// whether the row changed.
func (s *Store) MarkDuplicate(ctx context.Context, id, originalID int64) (bool, error) {
	if id == originalID {
		return false, fmt.Errorf("article %d: %w", id, types.ErrSelfReference)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET is_duplicate = 1, duplicate_of_id = ?
		WHERE id = ? AND is_duplicate = 0
		  AND EXISTS (SELECT 1 FROM articles o
		              WHERE o.id = ? AND o.is_duplicate = 0 AND o.user_id = articles.user_id)`,
		originalID, id, originalID)
	if err != nil {
		return false, fmt.Errorf("marking article %d duplicate of %d: %w", id, originalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListDownvoted returns the user's downvoted articles that have an
// embedding, most recently voted first.
func (s *Store) ListDownvoted(ctx context.Context, userID int64) ([]types.Article, error) {
	return s.listArticles(ctx, sq.Select(articleColumns...).From("articles").Where(sq.And{
		sq.Eq{"user_id": userID, "user_vote": int(types.VoteDown)},
		sq.NotEq{"title_embedding": nil},
	}).OrderBy("vote_updated_at DESC", "id DESC"))
}

// SaveAdjustment stores the downvote-adjusted score and its reason.
func (s *Store) SaveAdjustment(ctx context.Context, id int64, adjusted *float64, reason *string) error {
	_, err := execBuilder(ctx, s.db, sq.Update("articles").
		Set("adjusted_score", adjusted).
		Set("adjustment_reason", reason).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("saving adjustment for article %d: %w", id, err)
	}
	return nil
}

// SetVote records the user's vote and when it changed.
func (s *Store) SetVote(ctx context.Context, id int64, vote types.Vote, at time.Time) error {
	return s.updateArticle(ctx, id, sq.Update("articles").
		Set("user_vote", int(vote)).
		Set("vote_updated_at", formatTime(at)).
		Where(sq.Eq{"id": id}))
}

// MarkRead sets the read flag.
func (s *Store) MarkRead(ctx context.Context, id int64, read bool) error {
	return s.updateArticle(ctx, id, sq.Update("articles").Set("is_read", boolInt(read)).Where(sq.Eq{"id": id}))
}

// MarkSaved sets the saved flag; saved articles survive retention.
func (s *Store) MarkSaved(ctx context.Context, id int64, saved bool) error {
	return s.updateArticle(ctx, id, sq.Update("articles").Set("is_saved", boolInt(saved)).Where(sq.Eq{"id": id}))
}

func (s *Store) updateArticle(ctx context.Context, id int64, b sq.UpdateBuilder) error {
	n, err := execBuilder(ctx, s.db, b)
	if err != nil {
		return fmt.Errorf("updating article %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// ListCurationCandidates returns the user's non-archived, non-duplicate,
// scored articles that were created at or after since or already appear in
// the edition for date.
func (s *Store) ListCurationCandidates(ctx context.Context, userID int64, since time.Time, date string) ([]types.Article, error) {
	return s.listArticles(ctx, sq.Select(articleColumns...).From("articles").Where(sq.And{
		sq.Eq{"user_id": userID, "is_archived": 0, "is_duplicate": 0},
		sq.NotEq{"summary": nil},
		sq.Or{
			sq.GtOrEq{"created_at": formatTime(since)},
			sq.Expr("json_extract(appearances, ?) IS NOT NULL", appearancePath(date)),
		},
	}).OrderBy("id"))
}

func appearancePath(date string) string {
	return `$."` + date + `"`
}

// listArticles runs b and scans every row before returning so the single
// connection is free for the caller's next statement.
func (s *Store) listArticles(ctx context.Context, b sq.SelectBuilder) ([]types.Article, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(r rowScanner) (types.Article, error) {
	var a types.Article
	var feedID, categoryID, duplicateOfID sql.NullInt64
	var publishedAt, voteUpdatedAt, summary, embedding, reason sql.NullString
	var createdAt, appearances string
	var relevance, adjusted sql.NullFloat64
	var isDuplicate, isRead, isArchived, isSaved, vote int
	err := r.Scan(
		&a.ID, &a.UserID, &feedID, &categoryID, &a.Link, &a.Title, &a.Description,
		&a.Content, &a.Author, &publishedAt, &createdAt, &a.CuratedTitle,
		&a.CuratedSubtitle, &summary, &relevance, &embedding,
		&isDuplicate, &duplicateOfID, &vote, &voteUpdatedAt,
		&adjusted, &reason, &appearances, &isRead,
		&isArchived, &isSaved,
	)
	if err != nil {
		return types.Article{}, fmt.Errorf("scanning article: %w", err)
	}

	a.FeedID = nullInt(feedID)
	a.CategoryID = nullInt(categoryID)
	a.DuplicateOfID = nullInt(duplicateOfID)
	a.Summary = nullString(summary)
	a.AdjustmentReason = nullString(reason)
	a.RelevanceScore = nullFloat(relevance)
	a.AdjustedScore = nullFloat(adjusted)
	if embedding.Valid {
		a.TitleEmbedding = types.Embedding(embedding.String)
	}
	a.IsDuplicate = isDuplicate != 0
	a.IsRead = isRead != 0
	a.IsArchived = isArchived != 0
	a.IsSaved = isSaved != 0
	a.UserVote = types.Vote(vote)

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Article{}, fmt.Errorf("parsing created_at of article %d: %w", a.ID, err)
	}
	if a.PublishedAt, err = parseNullTime(publishedAt); err != nil {
		return types.Article{}, fmt.Errorf("parsing published_at of article %d: %w", a.ID, err)
	}
	if a.VoteUpdatedAt, err = parseNullTime(voteUpdatedAt); err != nil {
		return types.Article{}, fmt.Errorf("parsing vote_updated_at of article %d: %w", a.ID, err)
	}

	a.Appearances = types.Appearances{}
	if appearances != "" {
		if err := json.Unmarshal([]byte(appearances), &a.Appearances); err != nil {
			return types.Article{}, fmt.Errorf("parsing appearances of article %d: %w", a.ID, err)
		}
	}
	return a, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
