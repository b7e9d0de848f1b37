// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// GetEdition returns the stored edition for (userID, date) or
// types.ErrNotFound when none was generated yet.
func (s *Store) GetEdition(ctx context.Context, userID int64, date string) (types.Edition, error) {
	var structure, created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT structure, created_at, updated_at FROM editions WHERE user_id = ? AND date = ?`,
		userID, date).Scan(&structure, &created, &updated)
	if isNoRows(err) {
		return types.Edition{}, fmt.Errorf("edition %d/%s: %w", userID, date, types.ErrNotFound)
	}
	if err != nil {
		return types.Edition{}, fmt.Errorf("querying edition %d/%s: %w", userID, date, err)
	}

	ed := types.Edition{UserID: userID, Date: date}
	if err := json.Unmarshal([]byte(structure), &ed.Structure); err != nil {
		return types.Edition{}, fmt.Errorf("parsing edition structure %d/%s: %w", userID, date, err)
	}
	ed.Structure = ed.Structure.Normalize()
	if ed.CreatedAt, err = parseTime(created); err != nil {
		return types.Edition{}, fmt.Errorf("parsing edition created_at: %w", err)
	}
	if ed.UpdatedAt, err = parseTime(updated); err != nil {
		return types.Edition{}, fmt.Errorf("parsing edition updated_at: %w", err)
	}
	return ed, nil
}

// EditionStructureJSON returns the stored structure exactly as persisted.
func (s *Store) EditionStructureJSON(ctx context.Context, userID int64, date string) ([]byte, error) {
	var structure string
	err := s.db.QueryRowContext(ctx,
		`SELECT structure FROM editions WHERE user_id = ? AND date = ?`, userID, date).Scan(&structure)
	if isNoRows(err) {
		return nil, fmt.Errorf("edition %d/%s: %w", userID, date, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying edition %d/%s: %w", userID, date, err)
	}
	return []byte(structure), nil
}

// CommitEdition upserts the edition for (userID, date) and, in the same
// transaction, records an appearance for date on every placed article that
// lacks one. It returns the number of appearances added.
func (s *Store) CommitEdition(ctx context.Context, userID int64, date string, st types.Structure) (int, error) {
	st = st.Normalize()
	data, err := json.Marshal(st)
	if err != nil {
		return 0, fmt.Errorf("marshaling structure: %w", err)
	}
	now := formatTime(s.now())

	added := 0
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO editions (user_id, date, structure, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, date) DO UPDATE SET
				structure = excluded.structure,
				updated_at = excluded.updated_at`,
			userID, date, string(data), now, now); err != nil {
			return fmt.Errorf("upserting edition: %w", err)
		}

		sections := st.Sections()
		ids := make([]int64, 0, len(sections))
		for id := range sections {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		stmt, err := tx.PrepareContext(ctx, `
			UPDATE articles
			SET appearances = json_set(COALESCE(NULLIF(appearances, ''), '{}'), ?, ?)
			WHERE id = ? AND user_id = ? AND json_extract(appearances, ?) IS NULL`)
		if err != nil {
			return fmt.Errorf("preparing appearance update: %w", err)
		}
		defer stmt.Close()

		path := appearancePath(date)
		for _, id := range ids {
			res, err := stmt.ExecContext(ctx, path, sections[id], id, userID, path)
			if err != nil {
				return fmt.Errorf("recording appearance of article %d: %w", id, err)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
