// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/daily-curator/pkg/types"
)

var categoryColumns = []string{"id", "user_id", "name", "slug", "description", "display_order", "is_deleted"}

// CreateCategory inserts c. An empty slug is derived from the name.
func (s *Store) CreateCategory(ctx context.Context, c types.Category) (types.Category, error) {
	if c.Slug == "" {
		c.Slug = types.Slugify(c.Name)
	}
	if c.Slug == "" {
		return types.Category{}, fmt.Errorf("category %q has an empty slug", c.Name)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, slug, description, display_order, is_deleted)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		c.UserID, c.Name, c.Slug, c.Description, c.DisplayOrder)
	if err != nil {
		return types.Category{}, fmt.Errorf("inserting category %q: %w", c.Slug, err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return types.Category{}, fmt.Errorf("reading category id: %w", err)
	}
	c.IsDeleted = false
	return c, nil
}

// ListCategories returns the user's categories in display order. Soft-deleted
// categories are included only when includeDeleted is set.
func (s *Store) ListCategories(ctx context.Context, userID int64, includeDeleted bool) ([]types.Category, error) {
	where := sq.And{sq.Eq{"user_id": userID}}
	if !includeDeleted {
		where = append(where, sq.Eq{"is_deleted": 0})
	}
	rows, err := s.query(ctx, sq.Select(categoryColumns...).From("categories").
		Where(where).OrderBy("display_order", "id"))
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var cats []types.Category
	for rows.Next() {
		var (
			c       types.Category
			deleted int
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Slug, &c.Description, &c.DisplayOrder, &deleted); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.IsDeleted = deleted != 0
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// SoftDeleteCategory flags the category deleted. Its articles keep their
// category id so historical editions still resolve.
func (s *Store) SoftDeleteCategory(ctx context.Context, userID int64, slug string) error {
	n, err := execBuilder(ctx, s.db, sq.Update("categories").Set("is_deleted", 1).
		Where(sq.Eq{"user_id": userID, "slug": slug}))
	if err != nil {
		return fmt.Errorf("deleting category %q: %w", slug, err)
	}
	if n == 0 {
		return fmt.Errorf("category %q: %w", slug, types.ErrNotFound)
	}
	return nil
}

// CategoryBySlug returns the user's category with slug, deleted or not.
func (s *Store) CategoryBySlug(ctx context.Context, userID int64, slug string) (types.Category, error) {
	cats, err := s.ListCategories(ctx, userID, true)
	if err != nil {
		return types.Category{}, err
	}
	for _, c := range cats {
		if c.Slug == slug {
			return c, nil
		}
	}
	return types.Category{}, fmt.Errorf("category %q: %w", slug, types.ErrNotFound)
}
