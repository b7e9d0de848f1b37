// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-curator/internal/store"
	"github.com/pdiddy/daily-curator/pkg/types"
)

const importYAML = `
articles:
  - link: https://example.com/a
    title: Rust 2.0 announced
    description: The next edition lands.
    author: Ferris
    published_at: 2026-03-10T07:30:00Z
    category: tech
  - link: https://example.com/b
    title: Local election results
  - link: https://example.com/a
    title: Rust 2.0 announced (again)
`

func newImportStore(t *testing.T) (*store.Store, types.User, types.Category) {
	t.Helper()
	st, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "curator.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	u, err := st.CreateUser(ctx, "reader", "")
	require.NoError(t, err)
	c, err := st.CreateCategory(ctx, types.Category{UserID: u.ID, Name: "Tech"})
	require.NoError(t, err)
	return st, u, c
}

func TestImportArticles(t *testing.T) {
	st, u, tech := newImportStore(t)
	ctx := context.Background()

	var out bytes.Buffer
	sum, err := importArticles(ctx, st, strings.NewReader(importYAML), u.ID, &out)
	require.NoError(t, err)
	assert.Equal(t, importSummary{Inserted: 2, Skipped: 1}, sum)
	assert.Contains(t, out.String(), "skipped https://example.com/a")

	unscored, err := st.ListUnscored(ctx, store.UnscoredFilter{UserID: &u.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, unscored, 2)

	byLink := map[string]types.Article{}
	for _, a := range unscored {
		byLink[a.Link] = a
	}
	first := byLink["https://example.com/a"]
	assert.Equal(t, "Rust 2.0 announced", first.Title)
	assert.Equal(t, "Ferris", first.Author)
	require.NotNil(t, first.CategoryID)
	assert.Equal(t, tech.ID, *first.CategoryID)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, "2026-03-10T07:30:00Z", first.PublishedAt.UTC().Format("2006-01-02T15:04:05Z"))
	assert.Nil(t, byLink["https://example.com/b"].CategoryID)
}

func TestImportArticlesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		user int64
		want string
	}{
		{"unknown category", "articles:\n  - link: x\n    title: y\n    category: sports\n", 1, `category "sports"`},
		{"missing title", "articles:\n  - link: x\n", 1, "link and title are required"},
		{"no user", "articles:\n  - link: x\n    title: y\n", 0, "no user_id"},
		{"bad yaml", "articles: [", 1, "parsing import file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _, _ := newImportStore(t)
			_, err := importArticles(context.Background(), st, strings.NewReader(tt.doc), tt.user, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImportEmptyFile(t *testing.T) {
	st, u, _ := newImportStore(t)
	sum, err := importArticles(context.Background(), st, strings.NewReader(""), u.ID, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Zero(t, sum.Inserted)
}
