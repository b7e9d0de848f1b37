// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-curator/internal/store"
	"github.com/pdiddy/daily-curator/pkg/types"
)

var curationTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *store.Store
	svc   *Service
	now   time.Time
	user  types.User
	tech  types.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "curator.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{store: s, now: curationTime}
	clock := func() time.Time { return f.now }
	s.SetClock(clock)
	f.svc = NewService(s, nil, types.CuratorConfig{Timezone: "UTC"}, WithClock(clock))

	ctx := context.Background()
	f.user, err = s.CreateUser(ctx, "reader", "")
	require.NoError(t, err)
	f.tech, err = s.CreateCategory(ctx, types.Category{UserID: f.user.ID, Name: "Tech"})
	require.NoError(t, err)
	return f
}

func (f *fixture) add(t *testing.T, n int, category *int64, score float64) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	for i := 0; i < n; i++ {
		a := types.Article{
			UserID:    f.user.ID,
			Link:      fmt.Sprintf("https://example.com/%d-%d", len(ids), time.Now().UnixNano()),
			Title:     "headline",
			CreatedAt: curationTime.Add(-time.Hour),
		}
		ok, err := f.store.InsertArticle(ctx, &a)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, f.store.SaveScoring(ctx, a.ID, types.ScoreResult{
			Title: "curated", Summary: "summary", CategoryID: category, Score: score,
		}))
		ids = append(ids, a.ID)
	}
	return ids
}

func TestRebuildStoresEditionAndAppearances(t *testing.T) {
	f := newFixture(t)
	ids := f.add(t, 15, &f.tech.ID, 0.95)
	ctx := context.Background()

	st, err := f.svc.Rebuild(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ids[:9], st.Today)
	assert.Equal(t, ids[9:], st.Categories["tech"])

	ed, err := f.store.GetEdition(ctx, f.user.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, st, ed.Structure)

	first, err := f.store.GetArticle(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, types.Appearances{"2026-03-10": types.SectionToday}, first.Appearances)
	last, err := f.store.GetArticle(ctx, ids[14])
	require.NoError(t, err)
	assert.Equal(t, types.Appearances{"2026-03-10": "tech"}, last.Appearances)
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.add(t, 7, &f.tech.ID, 0.82)
	f.add(t, 3, nil, 0.7)
	ctx := context.Background()

	_, err := f.svc.Rebuild(ctx, f.user.ID, "2026-03-10")
	require.NoError(t, err)
	first, err := f.store.EditionStructureJSON(ctx, f.user.ID, "2026-03-10")
	require.NoError(t, err)

	_, err = f.svc.Rebuild(ctx, f.user.ID, "2026-03-10")
	require.NoError(t, err)
	second, err := f.store.EditionStructureJSON(ctx, f.user.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRebuildKeepsPublishedArticlesAfterPenalty(t *testing.T) {
	f := newFixture(t)
	ids := f.add(t, 2, &f.tech.ID, 0.9)
	ctx := context.Background()

	_, err := f.svc.Rebuild(ctx, f.user.ID, "")
	require.NoError(t, err)

	low, reason := 0.1, "Similar to downvoted content (similarity: 95%)"
	require.NoError(t, f.store.SaveAdjustment(ctx, ids[1], &low, &reason))

	st, err := f.svc.Rebuild(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, st.Today, "already published articles never leave the edition")
}

func TestRebuildExcludesArticlesReadYesterday(t *testing.T) {
	f := newFixture(t)
	ids := f.add(t, 2, &f.tech.ID, 0.9)
	ctx := context.Background()

	_, err := f.svc.Rebuild(ctx, f.user.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.store.MarkRead(ctx, ids[0], true))

	f.now = time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	st, err := f.svc.Rebuild(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1]}, st.Today)
}

func TestRebuildRejectsInvalidDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Rebuild(context.Background(), f.user.ID, "March 10")
	require.Error(t, err)
}

type failingRepo struct {
	*store.Store
	failUser int64
}

func (r failingRepo) ListCurationCandidates(ctx context.Context, userID int64, since time.Time, date string) ([]types.Article, error) {
	if userID == r.failUser {
		return nil, errors.New("disk on fire")
	}
	return r.Store.ListCurationCandidates(ctx, userID, since, date)
}

func TestRebuildAllContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.store.CreateUser(ctx, "second", "")
	require.NoError(t, err)
	inactive, err := f.store.CreateUser(ctx, "dormant", "")
	require.NoError(t, err)
	require.NoError(t, f.store.SetActive(ctx, inactive.ID, false))

	svc := NewService(failingRepo{Store: f.store, failUser: other.ID}, nil,
		types.CuratorConfig{Timezone: "UTC"}, WithClock(func() time.Time { return f.now }))
	res, err := svc.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 2, Successful: 1, Failed: 1}, res)
}

func TestBuildView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	science, err := f.store.CreateCategory(ctx, types.Category{UserID: f.user.ID, Name: "Science", DisplayOrder: -1})
	require.NoError(t, err)
	f.add(t, 5, &f.tech.ID, 0.65)
	f.add(t, 4, &science.ID, 0.65)

	_, err = f.svc.Rebuild(ctx, f.user.ID, "")
	require.NoError(t, err)

	v, err := BuildView(ctx, f.store, f.user.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Len(t, v.Today, 6)
	require.Len(t, v.Sections, 2)
	assert.Equal(t, "Science", v.Sections[0].Name, "sections follow display order")
	assert.Equal(t, "tech", v.Sections[1].Slug)
	assert.Equal(t, "curated", v.Today[0].Title)

	data, err := v.Encode("json")
	require.NoError(t, err)
	var decoded View
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, v.Date, decoded.Date)

	data, err = v.Encode("yaml")
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	_, err = v.Encode("xml")
	require.Error(t, err)
}

func TestBuildViewMissingEdition(t *testing.T) {
	f := newFixture(t)
	_, err := BuildView(context.Background(), f.store, f.user.ID, "2026-01-01")
	require.ErrorIs(t, err, types.ErrNotFound)
}
