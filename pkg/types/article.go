// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// Vote is the user's feedback on an article. There is no upvote.
type Vote int

const (
	VoteNone Vote = 0
	VoteDown Vote = -1
)

// SectionToday is the section key recorded for articles placed in the
// flat "Today" list of an edition.
const SectionToday = "today"

// DateLayout is the calendar date format used for edition dates and
// appearance keys.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t in loc formatted with DateLayout.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// Appearances maps a calendar date to the section key ("today" or a
// category slug) the article was placed in on that date. Entries are only
// ever added.
type Appearances map[string]string

// Article is a fetched content item owned by one user.
type Article struct {
	// ID is the immutable source id.
	ID int64 `json:"id" yaml:"id"`

	// UserID is the owning user.
	UserID int64 `json:"user_id" yaml:"user_id"`

	// FeedID is the feed the article came from, if known.
	FeedID *int64 `json:"feed_id,omitempty" yaml:"feed_id,omitempty"`

	// CategoryID is the assigned category, nil when uncategorized.
	CategoryID *int64 `json:"category_id,omitempty" yaml:"category_id,omitempty"`

	// Link is the canonical link URL and the per-user dedup key.
	Link string `json:"link" yaml:"link"`

	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Content     string     `json:"content,omitempty" yaml:"content,omitempty"`
	Author      string     `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`

	// CuratedTitle, CuratedSubtitle and Summary are written by the scoring
	// oracle. A non-nil Summary marks the article as scored.
	CuratedTitle    string  `json:"curated_title,omitempty" yaml:"curated_title,omitempty"`
	CuratedSubtitle string  `json:"curated_subtitle,omitempty" yaml:"curated_subtitle,omitempty"`
	Summary         *string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// RelevanceScore is the base score in [0,1] assigned by the oracle.
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// TitleEmbedding is the persisted title embedding, empty until computed.
	TitleEmbedding Embedding `json:"-" yaml:"-"`

	IsDuplicate   bool   `json:"is_duplicate" yaml:"is_duplicate"`
	DuplicateOfID *int64 `json:"duplicate_of_id,omitempty" yaml:"duplicate_of_id,omitempty"`

	UserVote      Vote       `json:"user_vote" yaml:"user_vote"`
	VoteUpdatedAt *time.Time `json:"vote_updated_at,omitempty" yaml:"vote_updated_at,omitempty"`

	// AdjustedScore mirrors RelevanceScore when no downvote penalty applies.
	AdjustedScore    *float64 `json:"adjusted_score,omitempty" yaml:"adjusted_score,omitempty"`
	AdjustmentReason *string  `json:"adjustment_reason,omitempty" yaml:"adjustment_reason,omitempty"`

	Appearances Appearances `json:"appearances,omitempty" yaml:"appearances,omitempty"`

	IsRead     bool `json:"is_read" yaml:"is_read"`
	IsArchived bool `json:"is_archived" yaml:"is_archived"`
	IsSaved    bool `json:"is_saved" yaml:"is_saved"`
}

// IsScored reports whether the scoring oracle has processed the article.
func (a *Article) IsScored() bool {
	return a.Summary != nil
}

// BaseScore returns the relevance score, or 0 when unscored.
func (a *Article) BaseScore() float64 {
	if a.RelevanceScore == nil {
		return 0
	}
	return *a.RelevanceScore
}

// EffectiveScore returns the adjusted score when present, else the base score.
func (a *Article) EffectiveScore() float64 {
	if a.AdjustedScore != nil {
		return *a.AdjustedScore
	}
	return a.BaseScore()
}

// DisplayTitle prefers the curated title over the feed title.
func (a *Article) DisplayTitle() string {
	if a.CuratedTitle != "" {
		return a.CuratedTitle
	}
	return a.Title
}

// DisplaySummary prefers the oracle summary, then the feed description.
func (a *Article) DisplaySummary() string {
	if a.Summary != nil && *a.Summary != "" {
		return *a.Summary
	}
	return a.Description
}

// HasAppearance reports whether the article was placed in the edition for date.
func (a *Article) HasAppearance(date string) bool {
	_, ok := a.Appearances[date]
	return ok
}

// ReadInPastEdition reports whether the article is read and appeared in an
// edition for a date strictly before date.
func (a *Article) ReadInPastEdition(date string) bool {
	if !a.IsRead {
		return false
	}
	for d := range a.Appearances {
		if d < date {
			return true
		}
	}
	return false
}

// Embedding is a title embedding in its persisted JSON form. Parsing is
// deferred so that one malformed row never prevents loading the others.
type Embedding string

// NewEmbedding encodes vec for persistence.
func NewEmbedding(vec []float64) Embedding {
	data, err := json.Marshal(vec)
	if err != nil {
		return ""
	}
	return Embedding(data)
}

// IsEmpty reports whether no embedding has been stored.
func (e Embedding) IsEmpty() bool {
	return strings.TrimSpace(string(e)) == ""
}

// Vector parses the embedding. An empty or malformed embedding is an error.
func (e Embedding) Vector() ([]float64, error) {
	if e.IsEmpty() {
		return nil, ErrNoEmbedding
	}
	var vec []float64
	if err := json.Unmarshal([]byte(e), &vec); err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, ErrNoEmbedding
	}
	return vec, nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
