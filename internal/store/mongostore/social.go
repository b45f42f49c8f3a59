package mongostore

import (
	"context"

	"github.com/chucklechain/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) CreatePost(ctx context.Context, p models.Post) error {
	_, err := s.db.Collection(collPosts).InsertOne(ctx, postDoc{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Caption:   p.Caption,
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
	})
	return wrap(err, "create post")
}

func (s *Store) GetPost(ctx context.Context, id string) (models.Post, error) {
	var d postDoc
	if err := s.db.Collection(collPosts).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.Post{}, wrap(err, "get post")
	}
	return models.Post{
		ID:        d.ID,
		AuthorID:  d.AuthorID,
		Caption:   d.Caption,
		Image:     d.Image,
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

func (s *Store) CreateComment(ctx context.Context, c models.Comment) error {
	_, err := s.db.Collection(collComments).InsertOne(ctx, commentDoc{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		ParentID:  c.ParentID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	})
	return wrap(err, "create comment")
}

func (s *Store) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var d commentDoc
	if err := s.db.Collection(collComments).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.Comment{}, wrap(err, "get comment")
	}
	return models.Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		AuthorID:  d.AuthorID,
		ParentID:  d.ParentID,
		Text:      d.Text,
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (bool, error) {
	return s.toggle(ctx, collPostLikes, postID, userID)
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error) {
	return s.toggle(ctx, collCommentLikes, commentID, userID)
}

func (s *Store) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.toggle(ctx, collFollows, followerID, followeeID)
}

// toggle inserts the edge; a duplicate key means it already existed, so it is
// removed instead.
func (s *Store) toggle(ctx context.Context, coll, a, b string) (bool, error) {
	c := s.db.Collection(coll)
	id := a + "|" + b

	_, err := c.InsertOne(ctx, edgeDoc{ID: id, A: a, B: b})
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, wrap(err, "toggle "+coll)
	}
	if _, err := c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return false, wrap(err, "toggle "+coll)
	}
	return false, nil
}
