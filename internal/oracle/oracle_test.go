// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-curator/internal/httputil"
	"github.com/pdiddy/daily-curator/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func useClaudeServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
}

// --- ClaudeCompleter ---

func TestClaudeCompleteSendsSystemAndParsesUsage(t *testing.T) {
	var got claudeRequest
	useClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"summary\":"},{"type":"text","text":"\"ok\"}"}],"usage":{"input_tokens":120,"output_tokens":30}}`))
	})

	c := &ClaudeCompleter{APIKey: "test-key", Model: "m"}
	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"ok"}`, out.Text)
	assert.Equal(t, 150, out.Tokens())
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[0].Content)
}

func TestClaudeCompleteRetriesThrottling(t *testing.T) {
	var calls int32
	useClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"hi"}]}`))
	})

	c := &ClaudeCompleter{APIKey: "k", Model: "m", MaxRetries: 2}
	out, err := c.Complete(context.Background(), Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Text)
	assert.Zero(t, out.Tokens())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClaudeCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `boom`, "returned 500"},
		{"empty content", http.StatusOK, `{"content":[]}`, ErrEmptyResponse.Error()},
		{"bad json", http.StatusOK, `{`, "decoding Claude response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c := &ClaudeCompleter{APIKey: "k", Model: "m"}
			_, err := c.Complete(context.Background(), Prompt{User: "u"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// --- CohereEmbedder ---

func TestCohereEmbed(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embed"), r.URL.Path)
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"e1","response_type":"embeddings_by_type","embeddings":{"float":[[0.1,0.2,0.3]]},"texts":["Go 1.26 released"]}`))
	}))
	defer ts.Close()
	old := cohereBaseURL
	cohereBaseURL = ts.URL
	defer func() { cohereBaseURL = old }()

	e := NewCohereEmbedder("co-key", "", ts.Client())
	assert.Equal(t, defaultEmbeddingModel, e.Model())

	vec, err := e.Embed(context.Background(), "Go 1.26 released")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, []any{"Go 1.26 released"}, body["texts"])

	_, err = e.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

// --- prompts ---

func testArticle() *types.Article {
	return &types.Article{
		ID:          7,
		Title:       "Kernel scheduler rewrite lands",
		Description: "A short description.",
		Content:     `Intro <img src="https://cdn.example.com/a.png"> text https://cdn.example.com/b.jpg?x=1 end`,
	}
}

func TestScorePromptCategories(t *testing.T) {
	a := testArticle()
	p, err := ScorePrompt(ScoreInput{
		Article:   a,
		Interests: "operating systems",
		Categories: []types.Category{
			{ID: 3, Name: "Tech", Description: "software and hardware"},
			{ID: 4, Name: "Old", IsDeleted: true},
			{ID: 5, Name: "World"},
		},
		MaxInputTokens: 8000,
	})
	require.NoError(t, err)

	assert.Contains(t, p.System, "relevance_score")
	assert.Contains(t, p.User, `  - "Tech" (ID: 3) - software and hardware`)
	assert.Contains(t, p.User, `  - "World" (ID: 5)`)
	assert.NotContains(t, p.User, `"Old"`)
	assert.NotContains(t, p.User, "No categories defined yet")
	assert.Contains(t, p.User, "Author: Unknown")
	assert.Contains(t, p.User, "operating systems")
	assert.NotContains(t, p.User, "cdn.example.com")
}

func TestScorePromptWithoutCategoriesOrInterests(t *testing.T) {
	a := testArticle()
	a.Content = ""
	a.Author = "Ada"
	p, err := ScorePrompt(ScoreInput{Article: a})
	require.NoError(t, err)
	assert.Contains(t, p.User, "No categories defined yet. Return null for category_id.")
	assert.Contains(t, p.User, DefaultInterests)
	assert.Contains(t, p.User, "A short description.")
	assert.Contains(t, p.User, "Author: Ada")
}

func TestScorePromptTruncatesContent(t *testing.T) {
	a := testArticle()
	a.Content = strings.Repeat("x", 10000)
	p, err := ScorePrompt(ScoreInput{Article: a, MaxInputTokens: 1500})
	require.NoError(t, err)
	assert.Contains(t, p.User, strings.Repeat("x", 2000)+"...")
	assert.NotContains(t, p.User, strings.Repeat("x", 2001))
}

func TestParseScore(t *testing.T) {
	cat := int64(3)
	tests := []struct {
		name    string
		text    string
		want    types.ScoreResult
		wantErr bool
	}{
		{
			name: "plain object",
			text: `{"title":"T","subtitle":"S","summary":"Sum","category_id":3,"relevance_score":0.85}`,
			want: types.ScoreResult{Title: "T", Subtitle: "S", Summary: "Sum", CategoryID: &cat, Score: 0.85},
		},
		{
			name: "fenced with null category",
			text: "```json\n{\"title\":\"T\",\"summary\":\"Sum\",\"category_id\":null,\"relevance_score\":0.4}\n```",
			want: types.ScoreResult{Title: "T", Summary: "Sum", Score: 0.4},
		},
		{
			name: "score clamped",
			text: `{"summary":"s","relevance_score":1.7}`,
			want: types.ScoreResult{Summary: "s", Score: 1},
		},
		{
			name: "negative score clamped",
			text: `{"summary":"s","relevance_score":-0.2}`,
			want: types.ScoreResult{Summary: "s", Score: 0},
		},
		{name: "no object", text: "I cannot help with that", wantErr: true},
		{name: "broken json", text: `{"summary": }`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExplainPrompt(t *testing.T) {
	base, adjusted := 0.8, 0.6
	summary := strings.Repeat("s", 400)
	a := &types.Article{Title: "New", CuratedTitle: "New curated", RelevanceScore: &base, AdjustedScore: &adjusted}
	d := &types.Article{Title: "Past", Summary: &summary}

	p, err := ExplainPrompt(ExplainInput{Article: a, Downvoted: d, Similarity: 0.9})
	require.NoError(t, err)
	assert.Contains(t, p.User, "Title: Past")
	assert.Contains(t, p.User, "Title: New curated")
	assert.Contains(t, p.User, "90% similar")
	assert.Contains(t, p.User, "from 0.80 to 0.60")
	assert.Contains(t, p.User, "Summary: "+strings.Repeat("s", 300)+"\n")
	assert.Equal(t, 200, p.MaxTokens)
}

func TestStripImages(t *testing.T) {
	in := "Lead\n\n\n<figure><img src=x><figcaption>c</figcaption></figure>  body   <picture><source srcset=y></picture> https://x.org/pic.PNG tail"
	assert.Equal(t, "Lead\n\n body tail", StripImages(in))
	assert.Equal(t, "", StripImages(""))
}

func TestTruncateTokens(t *testing.T) {
	assert.Equal(t, "abcd", TruncateTokens("abcd", 1))
	assert.Equal(t, "abcd...", TruncateTokens("abcdefgh", 1))
	assert.Equal(t, "abcdefgh", TruncateTokens("abcdefgh", 0))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "90%", Percent(0.9))
	assert.Equal(t, "87%", Percent(0.8712))
}
