// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ArchiveOlderThan flags unsaved, active articles created before cutoff as
// archived and returns how many changed.
func (s *Store) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := execBuilder(ctx, s.db, sq.Update("articles").Set("is_archived", 1).Where(archiveWhere(cutoff)))
	if err != nil {
		return 0, fmt.Errorf("archiving articles: %w", err)
	}
	return n, nil
}

// PurgeResult reports one purge pass.
type PurgeResult struct {
	Deleted  int64
	Unlinked int64
	IDs      []int64
}

// PurgeOlderThan deletes unsaved articles published (or, lacking a published
// time, created) before cutoff. Articles pointing at a purged article as
// their original are unlinked first so no duplicate reference dangles.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (PurgeResult, error) {
	var result PurgeResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := sq.Select("id").From("articles").Where(purgeWhere(cutoff)).OrderBy("id").ToSql()
		if err != nil {
			return fmt.Errorf("building purge query: %w", err)
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("selecting purge candidates: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scanning purge candidate: %w", err)
			}
			result.IDs = append(result.IDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(result.IDs) == 0 {
			return nil
		}

		unlinked, err := execBuilder(ctx, tx, sq.Update("articles").
			Set("duplicate_of_id", nil).
			Set("is_duplicate", 0).
			Where(sq.Eq{"duplicate_of_id": result.IDs}))
		if err != nil {
			return fmt.Errorf("unlinking duplicates: %w", err)
		}
		result.Unlinked = unlinked

		deleted, err := execBuilder(ctx, tx, sq.Delete("articles").Where(sq.Eq{"id": result.IDs}))
		if err != nil {
			return fmt.Errorf("deleting articles: %w", err)
		}
		result.Deleted = deleted
		return nil
	})
	if err != nil {
		return PurgeResult{}, err
	}
	return result, nil
}

// RetentionStats counts what the next archive and purge passes would touch.
type RetentionStats struct {
	ToArchive int64
	ToPurge   int64
	SavedKept int64
}

// Stats computes RetentionStats without modifying anything.
func (s *Store) Stats(ctx context.Context, archiveCutoff, purgeCutoff time.Time) (RetentionStats, error) {
	var st RetentionStats
	counts := []struct {
		dst   *int64
		where sq.Sqlizer
	}{
		{&st.ToArchive, archiveWhere(archiveCutoff)},
		{&st.ToPurge, purgeWhere(purgeCutoff)},
		{&st.SavedKept, sq.And{sq.Eq{"is_saved": 1}, agedWhere(purgeCutoff)}},
	}
	for _, c := range counts {
		query, args, err := sq.Select("COUNT(*)").From("articles").Where(c.where).ToSql()
		if err != nil {
			return RetentionStats{}, fmt.Errorf("building stats query: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(c.dst); err != nil {
			return RetentionStats{}, fmt.Errorf("counting retention candidates: %w", err)
		}
	}
	return st, nil
}

func archiveWhere(cutoff time.Time) sq.Sqlizer {
	return sq.And{
		sq.Eq{"is_saved": 0, "is_archived": 0},
		sq.Lt{"created_at": formatTime(cutoff)},
	}
}

func purgeWhere(cutoff time.Time) sq.Sqlizer {
	return sq.And{sq.Eq{"is_saved": 0}, agedWhere(cutoff)}
}

func agedWhere(cutoff time.Time) sq.Sqlizer {
	return sq.Expr("COALESCE(published_at, created_at) < ?", formatTime(cutoff))
}
