// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/daily-curator/pkg/types"
)

var userColumns = []string{"id", "name", "is_active", "interests", "created_at"}

// CreateUser inserts an active user.
func (s *Store) CreateUser(ctx context.Context, name, interests string) (types.User, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, is_active, interests, created_at) VALUES (?, 1, ?, ?)`,
		name, interests, formatTime(now))
	if err != nil {
		return types.User{}, fmt.Errorf("inserting user %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.User{}, fmt.Errorf("reading user id: %w", err)
	}
	return types.User{ID: id, Name: name, IsActive: true, Interests: interests, CreatedAt: now.UTC()}, nil
}

// GetUser returns the user with id or types.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (types.User, error) {
	users, err := s.listUsers(ctx, sq.Eq{"id": id})
	if err != nil {
		return types.User{}, err
	}
	if len(users) == 0 {
		return types.User{}, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	return users[0], nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]types.User, error) {
	return s.listUsers(ctx, nil)
}

// ListActiveUsers returns active users ordered by id.
func (s *Store) ListActiveUsers(ctx context.Context) ([]types.User, error) {
	return s.listUsers(ctx, sq.Eq{"is_active": 1})
}

// SetInterests replaces the user's interest prompt.
func (s *Store) SetInterests(ctx context.Context, id int64, interests string) error {
	return s.updateUser(ctx, id, sq.Update("users").Set("interests", interests).Where(sq.Eq{"id": id}))
}

// SetActive enables or disables edition generation for the user.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	return s.updateUser(ctx, id, sq.Update("users").Set("is_active", boolInt(active)).Where(sq.Eq{"id": id}))
}

func (s *Store) updateUser(ctx context.Context, id int64, b sq.UpdateBuilder) error {
	n, err := execBuilder(ctx, s.db, b)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	return nil
}

func (s *Store) listUsers(ctx context.Context, where sq.Sqlizer) ([]types.User, error) {
	b := sq.Select(userColumns...).From("users").OrderBy("id")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var (
			u       types.User
			active  int
			created string
		)
		if err := rows.Scan(&u.ID, &u.Name, &active, &u.Interests, &created); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.IsActive = active != 0
		if u.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parsing user created_at: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
