// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"context"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// ArticleView is one placed article as shown to a reader.
type ArticleView struct {
	ID               int64   `json:"id" yaml:"id"`
	Title            string  `json:"title" yaml:"title"`
	Subtitle         string  `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Summary          string  `json:"summary,omitempty" yaml:"summary,omitempty"`
	Link             string  `json:"link" yaml:"link"`
	Score            float64 `json:"score" yaml:"score"`
	AdjustmentReason string  `json:"adjustment_reason,omitempty" yaml:"adjustment_reason,omitempty"`
	IsRead           bool    `json:"is_read" yaml:"is_read"`
	IsSaved          bool    `json:"is_saved" yaml:"is_saved"`
	Downvoted        bool    `json:"downvoted" yaml:"downvoted"`
}

// SectionView is one category list of an edition.
type SectionView struct {
	Slug     string        `json:"slug" yaml:"slug"`
	Name     string        `json:"name" yaml:"name"`
	Articles []ArticleView `json:"articles" yaml:"articles"`
}

// View is a rendered edition.
type View struct {
	UserID   int64         `json:"user_id" yaml:"user_id"`
	Date     string        `json:"date" yaml:"date"`
	Today    []ArticleView `json:"today" yaml:"today"`
	Sections []SectionView `json:"sections" yaml:"sections"`
}

// ViewRepository is the persistence needed to render an edition.
type ViewRepository interface {
	GetEdition(ctx context.Context, userID int64, date string) (types.Edition, error)
	GetArticles(ctx context.Context, ids []int64) (map[int64]types.Article, error)
	ListCategories(ctx context.Context, userID int64, includeDeleted bool) ([]types.Category, error)
}

// BuildView renders the stored edition for (userID, date). Ids whose
// articles no longer exist are skipped. Sections follow the categories'
// display order; sections of deleted categories come last under their slug.
func BuildView(ctx context.Context, repo ViewRepository, userID int64, date string) (View, error) {
	ed, err := repo.GetEdition(ctx, userID, date)
	if err != nil {
		return View{}, err
	}
	st := ed.Structure

	placed := st.IDs()
	ids := make([]int64, 0, len(placed))
	for id := range placed {
		ids = append(ids, id)
	}
	articles, err := repo.GetArticles(ctx, ids)
	if err != nil {
		return View{}, fmt.Errorf("loading edition articles: %w", err)
	}
	categories, err := repo.ListCategories(ctx, userID, true)
	if err != nil {
		return View{}, fmt.Errorf("loading categories: %w", err)
	}

	render := func(list []int64) []ArticleView {
		out := []ArticleView{}
		for _, id := range list {
			if a, ok := articles[id]; ok {
				out = append(out, articleView(&a))
			}
		}
		return out
	}

	v := View{UserID: userID, Date: ed.Date, Today: render(st.Today), Sections: []SectionView{}}
	seen := make(map[string]bool)
	for _, c := range categories {
		if c.IsDeleted || seen[c.Slug] {
			continue
		}
		seen[c.Slug] = true
		if list, ok := st.Categories[c.Slug]; ok {
			v.Sections = append(v.Sections, SectionView{Slug: c.Slug, Name: c.Name, Articles: render(list)})
		}
	}
	for _, slug := range st.Slugs() {
		if !seen[slug] {
			v.Sections = append(v.Sections, SectionView{Slug: slug, Name: slug, Articles: render(st.Categories[slug])})
		}
	}
	return v, nil
}

func articleView(a *types.Article) ArticleView {
	v := ArticleView{
		ID:        a.ID,
		Title:     a.DisplayTitle(),
		Subtitle:  a.CuratedSubtitle,
		Summary:   a.DisplaySummary(),
		Link:      a.Link,
		Score:     a.EffectiveScore(),
		IsRead:    a.IsRead,
		IsSaved:   a.IsSaved,
		Downvoted: a.UserVote == types.VoteDown,
	}
	if a.AdjustmentReason != nil {
		v.AdjustmentReason = *a.AdjustmentReason
	}
	return v
}

// Encode serializes v as "yaml" or "json".
func (v View) Encode(format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	case "json", "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
