// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category is a user-defined bucket. Soft-deleted categories stay in the
// table for historical editions.
type Category struct {
	ID           int64  `json:"id" yaml:"id"`
	UserID       int64  `json:"user_id" yaml:"user_id"`
	Name         string `json:"name" yaml:"name"`
	Slug         string `json:"slug" yaml:"slug"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	DisplayOrder int    `json:"display_order" yaml:"display_order"`
	IsDeleted    bool   `json:"is_deleted" yaml:"is_deleted"`
}

// Slugify derives a category slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// User owns articles, categories and editions.
type User struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
	Interests string    `json:"interests,omitempty" yaml:"interests,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Structure is the content of one edition: an ordered "Today" list plus an
// ordered list per category slug. An article id appears in at most one list.
type Structure struct {
	Today      []int64            `json:"today" yaml:"today"`
	Categories map[string][]int64 `json:"categories" yaml:"categories"`
}

// NewStructure returns an empty structure.
func NewStructure() Structure {
	return Structure{Today: []int64{}, Categories: map[string][]int64{}}
}

// Normalize replaces nil lists with empty ones and drops empty category
// lists so that equal contents always serialize identically.
func (s Structure) Normalize() Structure {
	out := Structure{Today: s.Today, Categories: map[string][]int64{}}
	if out.Today == nil {
		out.Today = []int64{}
	}
	for slug, ids := range s.Categories {
		if len(ids) > 0 {
			out.Categories[slug] = ids
		}
	}
	return out
}

// Slugs returns the category slugs in sorted order.
func (s Structure) Slugs() []string {
	slugs := make([]string, 0, len(s.Categories))
	for slug := range s.Categories {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Sections maps every placed article id to its section key. When an id is
// present in more than one list, "today" takes precedence.
func (s Structure) Sections() map[int64]string {
	out := make(map[int64]string)
	for _, slug := range s.Slugs() {
		for _, id := range s.Categories[slug] {
			if _, ok := out[id]; !ok {
				out[id] = slug
			}
		}
	}
	for _, id := range s.Today {
		out[id] = SectionToday
	}
	return out
}

// IDs returns the set of article ids placed anywhere in the structure.
func (s Structure) IDs() map[int64]bool {
	ids := make(map[int64]bool)
	for _, id := range s.Today {
		ids[id] = true
	}
	for _, list := range s.Categories {
		for _, id := range list {
			ids[id] = true
		}
	}
	return ids
}

// Len returns the number of placements across all lists.
func (s Structure) Len() int {
	n := len(s.Today)
	for _, list := range s.Categories {
		n += len(list)
	}
	return n
}

// Validate checks that no article id is placed twice.
func (s Structure) Validate() error {
	seen := make(map[int64]string)
	check := func(section string, ids []int64) error {
		for _, id := range ids {
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: article %d in %q and %q", ErrInvalidStructure, id, prev, section)
			}
			seen[id] = section
		}
		return nil
	}
	if err := check(SectionToday, s.Today); err != nil {
		return err
	}
	for _, slug := range s.Slugs() {
		if err := check(slug, s.Categories[slug]); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether every id placed in old is also placed in s.
func (s Structure) Contains(old Structure) error {
	ids := s.IDs()
	for id := range old.IDs() {
		if !ids[id] {
			return fmt.Errorf("%w: article %d", ErrEvicted, id)
		}
	}
	return nil
}

// Edition is the stored newspaper for one user and calendar date.
type Edition struct {
	UserID    int64     `json:"user_id" yaml:"user_id"`
	Date      string    `json:"date" yaml:"date"`
	Structure Structure `json:"structure" yaml:"structure"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
