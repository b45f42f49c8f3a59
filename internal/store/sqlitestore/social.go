package sqlitestore

import (
	"context"

	"github.com/chucklechain/server/internal/models"
)

func (s *Store) CreatePost(ctx context.Context, p models.Post) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, caption, image, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Caption, p.Image, toMillis(p.CreatedAt),
	)
	return wrap(err, "create post")
}

func (s *Store) GetPost(ctx context.Context, id string) (models.Post, error) {
	var (
		p         models.Post
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, author_id, caption, image, created_at FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.AuthorID, &p.Caption, &p.Image, &createdAt)
	if err != nil {
		return models.Post{}, wrap(err, "get post")
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func (s *Store) CreateComment(ctx context.Context, c models.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, parent_id, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.AuthorID, c.ParentID, c.Text, toMillis(c.CreatedAt),
	)
	return wrap(err, "create comment")
}

func (s *Store) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var (
		c         models.Comment
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, post_id, author_id, parent_id, text, created_at FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ParentID, &c.Text, &createdAt)
	if err != nil {
		return models.Comment{}, wrap(err, "get comment")
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (bool, error) {
	return s.toggle(ctx, "post_likes", "post_id", "user_id", postID, userID)
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error) {
	return s.toggle(ctx, "comment_likes", "comment_id", "user_id", commentID, userID)
}

func (s *Store) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.toggle(ctx, "follows", "follower_id", "followee_id", followerID, followeeID)
}

// toggle inserts the edge if absent, otherwise removes it, inside one
// transaction. Table and column names are package constants, never input.
func (s *Store) toggle(ctx context.Context, table, colA, colB, a, b string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrap(err, "begin toggle")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+table+` (`+colA+`, `+colB+`) VALUES (?, ?)`, a, b,
	)
	if err != nil {
		return false, wrap(err, "toggle "+table)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, wrap(err, "toggle "+table)
	}

	active := inserted == 1
	if !active {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE `+colA+` = ? AND `+colB+` = ?`, a, b,
		); err != nil {
			return false, wrap(err, "toggle "+table)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, wrap(err, "commit toggle")
	}
	return active, nil
}
