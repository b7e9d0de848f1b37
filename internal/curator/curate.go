// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curator assembles the daily edition for a user: a flat "Today"
// list plus one list per category. Regeneration is deterministic and never
// removes an article already placed in the stored edition for that date.
package curator

import (
	"sort"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// Input is everything one curation pass needs. It holds no I/O so that the
// algorithm can be exercised directly.
type Input struct {
	// Date is the edition date (types.DateLayout).
	Date string

	// Articles are the candidates: non-archived, non-duplicate, scored
	// articles inside the window or already appearing on Date.
	Articles []types.Article

	// Categories are the user's active categories. Articles assigned to any
	// other category id join the uncategorized pool.
	Categories []types.Category

	// Previous is the stored structure for Date, empty when none exists.
	Previous types.Structure

	MinScore           float64
	UncategorizedToday int
}

// TodayCapacity returns how many of a category's articles go to Today,
// scaled by the best score the category has to offer.
func TodayCapacity(best float64) int {
	switch {
	case best >= 0.9:
		return 9
	case best >= 0.8:
		return 6
	case best >= 0.7:
		return 4
	default:
		return 3
	}
}

// Eligible reports whether a qualifies for the edition on date: a high
// enough score without having been read in an earlier edition, or an
// existing placement on date.
func Eligible(a *types.Article, date string, minScore float64) bool {
	if a.HasAppearance(date) {
		return true
	}
	return a.EffectiveScore() >= minScore && !a.ReadInPastEdition(date)
}

// Curate computes the edition structure for in.
func Curate(in Input) types.Structure {
	slugs := make(map[int64]string, len(in.Categories))
	for _, c := range in.Categories {
		if !c.IsDeleted {
			slugs[c.ID] = c.Slug
		}
	}

	byCategory := make(map[string][]*types.Article)
	var uncategorized []*types.Article
	for i := range in.Articles {
		a := &in.Articles[i]
		if !Eligible(a, in.Date, in.MinScore) {
			continue
		}
		if a.CategoryID != nil {
			if slug, ok := slugs[*a.CategoryID]; ok {
				byCategory[slug] = append(byCategory[slug], a)
				continue
			}
		}
		uncategorized = append(uncategorized, a)
	}

	var today []*types.Article
	sections := make(map[string][]*types.Article)
	for slug, list := range byCategory {
		sortByScore(list)
		n := min(TodayCapacity(list[0].EffectiveScore()), len(list))
		today = append(today, list[:n]...)
		if rest := list[n:]; len(rest) > 0 {
			sections[slug] = rest
		}
	}

	sortByScore(uncategorized)
	limit := in.UncategorizedToday
	if limit <= 0 {
		limit = types.DefaultConfig().Curator.UncategorizedToday
	}
	today = append(today, uncategorized[:min(limit, len(uncategorized))]...)

	st := types.NewStructure()
	sortForReading(today)
	st.Today = ids(today)
	for slug, list := range sections {
		sortForReading(list)
		st.Categories[slug] = ids(list)
	}

	return carryOver(st, in.Previous).Normalize()
}

// carryOver appends every id of prev missing from st to the list it
// occupied in prev, in prev order. Articles may move between lists across
// regenerations but never leave the edition.
func carryOver(st, prev types.Structure) types.Structure {
	placed := st.IDs()
	for _, id := range prev.Today {
		if !placed[id] {
			st.Today = append(st.Today, id)
			placed[id] = true
		}
	}
	for _, slug := range prev.Slugs() {
		for _, id := range prev.Categories[slug] {
			if !placed[id] {
				st.Categories[slug] = append(st.Categories[slug], id)
				placed[id] = true
			}
		}
	}
	return st
}

// sortByScore orders by effective score descending, then id ascending.
func sortByScore(list []*types.Article) {
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := list[i].EffectiveScore(), list[j].EffectiveScore()
		if si != sj {
			return si > sj
		}
		return list[i].ID < list[j].ID
	})
}

// sortForReading puts unread articles first, then orders by score.
func sortForReading(list []*types.Article) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsRead != list[j].IsRead {
			return !list[i].IsRead
		}
		si, sj := list[i].EffectiveScore(), list[j].EffectiveScore()
		if si != sj {
			return si > sj
		}
		return list[i].ID < list[j].ID
	})
}

func ids(list []*types.Article) []int64 {
	out := make([]int64, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}
