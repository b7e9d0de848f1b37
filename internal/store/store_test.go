// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// --- test helpers ---

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testSetup(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "curator.db")})
	require.NoError(t, err)
	s.SetClock(func() time.Time { return baseTime })
	t.Cleanup(func() { s.Close() })
	return s
}

func addUser(t *testing.T, s *Store, name string) types.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "")
	require.NoError(t, err)
	return u
}

func addArticle(t *testing.T, s *Store, userID int64, link string, created time.Time) types.Article {
	t.Helper()
	a := types.Article{
		UserID:      userID,
		Link:        link,
		Title:       "Title " + link,
		Description: "Description " + link,
		CreatedAt:   created,
	}
	ok, err := s.InsertArticle(context.Background(), &a)
	require.NoError(t, err)
	require.True(t, ok)
	return a
}

func score(t *testing.T, s *Store, id int64, v float64) {
	t.Helper()
	require.NoError(t, s.SaveScoring(context.Background(), id, types.ScoreResult{
		Title: "curated", Summary: "summary", Score: v,
	}))
}

// --- schema ---

func TestOpenCreatesSchema(t *testing.T) {
	s := testSetup(t)
	for _, table := range []string{"users", "categories", "articles", "editions"} {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}
}

// --- users and categories ---

func TestUsers(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	alice := addUser(t, s, "alice")
	bob := addUser(t, s, "bob")
	require.NoError(t, s.SetActive(ctx, bob.ID, false))
	require.NoError(t, s.SetInterests(ctx, alice.ID, "distributed systems"))

	active, err := s.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Name)
	assert.Equal(t, "distributed systems", active[0].Interests)

	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, s.SetInterests(ctx, 999, "x"), types.ErrNotFound)
}

func TestCategories(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")

	tech, err := s.CreateCategory(ctx, types.Category{UserID: u.ID, Name: "Tech & Science", DisplayOrder: 2})
	require.NoError(t, err)
	assert.Equal(t, "tech-science", tech.Slug)
	_, err = s.CreateCategory(ctx, types.Category{UserID: u.ID, Name: "World", DisplayOrder: 1})
	require.NoError(t, err)

	cats, err := s.ListCategories(ctx, u.ID, false)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "world", cats[0].Slug, "ordered by display order")

	require.NoError(t, s.SoftDeleteCategory(ctx, u.ID, "world"))
	cats, err = s.ListCategories(ctx, u.ID, false)
	require.NoError(t, err)
	require.Len(t, cats, 1)

	all, err := s.ListCategories(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deleted, err := s.CategoryBySlug(ctx, u.ID, "world")
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	assert.ErrorIs(t, s.SoftDeleteCategory(ctx, u.ID, "missing"), types.ErrNotFound)
}

// --- articles ---

func TestInsertArticleSkipsDuplicateLink(t *testing.T) {
	s := testSetup(t)
	u := addUser(t, s, "alice")
	addArticle(t, s, u.ID, "https://example.com/a", baseTime)

	dup := types.Article{UserID: u.ID, Link: "https://example.com/a", Title: "again"}
	ok, err := s.InsertArticle(context.Background(), &dup)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArticleRoundTripsNullableFields(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	published := baseTime.Add(-time.Hour)
	a := types.Article{
		UserID: u.ID, Link: "l", Title: "t", PublishedAt: &published, CreatedAt: baseTime,
	}
	_, err := s.InsertArticle(ctx, &a)
	require.NoError(t, err)

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsScored())
	assert.Nil(t, got.RelevanceScore)
	assert.Nil(t, got.CategoryID)
	assert.True(t, got.TitleEmbedding.IsEmpty())
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(*got.PublishedAt))
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.Empty(t, got.Appearances)

	_, err = s.GetArticle(ctx, 12345)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListUnscored(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	alice := addUser(t, s, "alice")
	bob := addUser(t, s, "bob")

	old := addArticle(t, s, alice.ID, "old", baseTime.Add(-48*time.Hour))
	fresh := addArticle(t, s, alice.ID, "fresh", baseTime.Add(-time.Hour))
	scored := addArticle(t, s, alice.ID, "scored", baseTime.Add(-time.Hour))
	bobs := addArticle(t, s, bob.ID, "bobs", baseTime.Add(-time.Hour))
	score(t, s, scored.ID, 0.5)

	tests := []struct {
		name   string
		filter UnscoredFilter
		want   []int64
	}{
		{
			name:   "window excludes old and scored",
			filter: UnscoredFilter{Since: baseTime.Add(-24 * time.Hour)},
			want:   []int64{fresh.ID, bobs.ID},
		},
		{
			name:   "explicit ids ignore the window",
			filter: UnscoredFilter{ArticleIDs: []int64{old.ID, scored.ID}},
			want:   []int64{old.ID},
		},
		{
			name:   "user filter",
			filter: UnscoredFilter{Since: baseTime.Add(-24 * time.Hour), UserID: &bob.ID},
			want:   []int64{bobs.ID},
		},
		{
			name:   "limit",
			filter: UnscoredFilter{Since: baseTime.Add(-72 * time.Hour), Limit: 1},
			want:   []int64{old.ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListUnscored(ctx, tt.filter)
			require.NoError(t, err)
			var ids []int64
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSaveScoringOnce(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	cat, err := s.CreateCategory(ctx, types.Category{UserID: u.ID, Name: "Tech"})
	require.NoError(t, err)
	a := addArticle(t, s, u.ID, "a", baseTime)

	require.NoError(t, s.SaveScoring(ctx, a.ID, types.ScoreResult{
		Title: "T", Subtitle: "S", Summary: "sum", CategoryID: &cat.ID, Score: 0.7,
	}))
	err = s.SaveScoring(ctx, a.ID, types.ScoreResult{Summary: "again", Score: 0.1})
	assert.ErrorIs(t, err, types.ErrAlreadyScored)

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.IsScored())
	assert.Equal(t, "sum", *got.Summary)
	assert.Equal(t, 0.7, got.BaseScore())
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)
}

func TestSaveScoringNilCategoryKeepsExisting(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	cat, err := s.CreateCategory(ctx, types.Category{UserID: u.ID, Name: "Tech"})
	require.NoError(t, err)
	a := types.Article{UserID: u.ID, Link: "a", Title: "a", CategoryID: &cat.ID}
	_, err = s.InsertArticle(ctx, &a)
	require.NoError(t, err)

	require.NoError(t, s.SaveScoring(ctx, a.ID, types.ScoreResult{Summary: "s", Score: 0.2}))
	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)
}

func TestMarkDuplicate(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	other := addUser(t, s, "bob")
	a := addArticle(t, s, u.ID, "a", baseTime)
	b := addArticle(t, s, u.ID, "b", baseTime)
	c := addArticle(t, s, other.ID, "c", baseTime)

	_, err := s.MarkDuplicate(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, types.ErrSelfReference)

	ok, err := s.MarkDuplicate(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok, "cross-user originals are refused")

	ok, err = s.MarkDuplicate(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkDuplicate(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "an article marked duplicate cannot become an original")

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDuplicate)
	require.NotNil(t, got.DuplicateOfID)
	assert.Equal(t, b.ID, *got.DuplicateOfID)

	gotB, err := s.GetArticle(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotB.IsDuplicate)
}

func TestDuplicateCandidates(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	self := addArticle(t, s, u.ID, "self", baseTime)
	withEmb := addArticle(t, s, u.ID, "emb", baseTime.Add(-time.Hour))
	addArticle(t, s, u.ID, "noemb", baseTime.Add(-time.Hour))
	old := addArticle(t, s, u.ID, "old", baseTime.Add(-72*time.Hour))
	dup := addArticle(t, s, u.ID, "dup", baseTime.Add(-time.Hour))

	emb := types.NewEmbedding([]float64{1, 0})
	for _, id := range []int64{self.ID, withEmb.ID, old.ID, dup.ID} {
		require.NoError(t, s.SetEmbedding(ctx, id, emb))
	}
	_, err := s.MarkDuplicate(ctx, dup.ID, withEmb.ID)
	require.NoError(t, err)

	got, err := s.ListDuplicateCandidates(ctx, u.ID, self.ID, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withEmb.ID, got[0].ID)
	vec, err := got[0].TitleEmbedding.Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)
}

func TestListDownvotedOrder(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	a := addArticle(t, s, u.ID, "a", baseTime)
	b := addArticle(t, s, u.ID, "b", baseTime)
	c := addArticle(t, s, u.ID, "c", baseTime)
	for _, id := range []int64{a.ID, b.ID} {
		require.NoError(t, s.SetEmbedding(ctx, id, types.NewEmbedding([]float64{1})))
	}

	require.NoError(t, s.SetVote(ctx, a.ID, types.VoteDown, baseTime))
	require.NoError(t, s.SetVote(ctx, b.ID, types.VoteDown, baseTime.Add(time.Minute)))
	require.NoError(t, s.SetVote(ctx, c.ID, types.VoteDown, baseTime.Add(2*time.Minute)))

	got, err := s.ListDownvoted(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got, 2, "articles without embeddings are skipped")
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)

	assert.ErrorIs(t, s.SetVote(ctx, 999, types.VoteDown, baseTime), types.ErrNotFound)
}

func TestSaveAdjustment(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	a := addArticle(t, s, u.ID, "a", baseTime)

	adjusted, reason := 0.4, "Similar to downvoted content (similarity: 90%)"
	require.NoError(t, s.SaveAdjustment(ctx, a.ID, &adjusted, &reason))
	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AdjustedScore)
	assert.Equal(t, 0.4, *got.AdjustedScore)
	require.NotNil(t, got.AdjustmentReason)
	assert.Equal(t, reason, *got.AdjustmentReason)

	require.NoError(t, s.SaveAdjustment(ctx, a.ID, nil, nil))
	got, err = s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AdjustedScore)
	assert.Nil(t, got.AdjustmentReason)
}

// --- editions ---

func TestCommitEditionRecordsAppearancesOnce(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	a := addArticle(t, s, u.ID, "a", baseTime)
	b := addArticle(t, s, u.ID, "b", baseTime)

	_, err := s.GetEdition(ctx, u.ID, "2026-03-10")
	assert.ErrorIs(t, err, types.ErrNotFound)

	st := types.Structure{Today: []int64{a.ID}, Categories: map[string][]int64{"tech": {b.ID}}}
	added, err := s.CommitEdition(ctx, u.ID, "2026-03-10", st)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Moving b to Today does not rewrite its recorded appearance.
	st2 := types.Structure{Today: []int64{a.ID, b.ID}, Categories: map[string][]int64{}}
	added, err = s.CommitEdition(ctx, u.ID, "2026-03-10", st2)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	gotB, err := s.GetArticle(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Appearances{"2026-03-10": "tech"}, gotB.Appearances)

	ed, err := s.GetEdition(ctx, u.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ed.Structure.Today)
	assert.Empty(t, ed.Structure.Categories)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM editions`).Scan(&count))
	assert.Equal(t, 1, count, "one row per user and date")
}

func TestCurationCandidatesIncludePublishedToday(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	fresh := addArticle(t, s, u.ID, "fresh", baseTime.Add(-time.Hour))
	old := addArticle(t, s, u.ID, "old", baseTime.Add(-30*time.Hour))
	oldUnpublished := addArticle(t, s, u.ID, "old2", baseTime.Add(-30*time.Hour))
	unscored := addArticle(t, s, u.ID, "unscored", baseTime.Add(-time.Hour))
	for _, id := range []int64{fresh.ID, old.ID, oldUnpublished.ID} {
		score(t, s, id, 0.9)
	}
	_, err := s.CommitEdition(ctx, u.ID, "2026-03-10", types.Structure{Today: []int64{old.ID}})
	require.NoError(t, err)

	got, err := s.ListCurationCandidates(ctx, u.ID, baseTime.Add(-24*time.Hour), "2026-03-10")
	require.NoError(t, err)
	var ids []int64
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []int64{fresh.ID, old.ID}, ids)
	assert.NotContains(t, ids, unscored.ID)
}

// --- retention ---

func TestPurgeUnlinksDuplicatesFirst(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")

	original := addArticle(t, s, u.ID, "orig", baseTime.Add(-10*24*time.Hour))
	saved := addArticle(t, s, u.ID, "saved", baseTime.Add(-10*24*time.Hour))
	copyOf := addArticle(t, s, u.ID, "copy", baseTime.Add(-time.Hour))
	require.NoError(t, s.MarkSaved(ctx, saved.ID, true))
	_, err := s.MarkDuplicate(ctx, copyOf.ID, original.ID)
	require.NoError(t, err)

	stats, err := s.Stats(ctx, baseTime.Add(-7*24*time.Hour), baseTime.Add(-8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ToPurge)
	assert.Equal(t, int64(1), stats.SavedKept)

	res, err := s.PurgeOlderThan(ctx, baseTime.Add(-8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)
	assert.Equal(t, int64(1), res.Unlinked)
	assert.Equal(t, []int64{original.ID}, res.IDs)

	got, err := s.GetArticle(ctx, copyOf.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DuplicateOfID)
	assert.False(t, got.IsDuplicate)

	_, err = s.GetArticle(ctx, saved.ID)
	assert.NoError(t, err, "saved articles are kept")
}

func TestArchiveOlderThan(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")
	old := addArticle(t, s, u.ID, "old", baseTime.Add(-8*24*time.Hour))
	addArticle(t, s, u.ID, "new", baseTime)

	n, err := s.ArchiveOlderThan(ctx, baseTime.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetArticle(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, got.IsArchived)

	n, err = s.ArchiveOlderThan(ctx, baseTime.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "already archived rows are not counted twice")
}
