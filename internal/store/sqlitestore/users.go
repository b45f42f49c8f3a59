package sqlitestore

import (
	"context"
	"strings"

	"github.com/chucklechain/server/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, profile_picture) VALUES (?, ?, ?)`,
		u.ID, u.Username, u.ProfilePicture,
	)
	return wrap(err, "create user")
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, profile_picture FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.ProfilePicture)
	return u, wrap(err, "get user")
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, profile_picture FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.ProfilePicture)
	return u, wrap(err, "get user by username")
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, profile_picture FROM users WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, wrap(err, "get users")
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.ProfilePicture); err != nil {
			return nil, wrap(err, "scan user")
		}
		out[u.ID] = u
	}
	return out, wrap(rows.Err(), "get users")
}
