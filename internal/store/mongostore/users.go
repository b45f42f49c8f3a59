package mongostore

import (
	"context"

	"github.com/chucklechain/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.db.Collection(collUsers).InsertOne(ctx, userDoc{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	})
	return wrap(err, "create user")
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var d userDoc
	if err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.User{}, wrap(err, "get user")
	}
	return d.model(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var d userDoc
	if err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"username": username}).Decode(&d); err != nil {
		return models.User{}, wrap(err, "get user by username")
	}
	return d.model(), nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.db.Collection(collUsers).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, wrap(err, "get users")
	}
	defer closeCursor(ctx, cur)

	for cur.Next(ctx) {
		var d userDoc
		if err := cur.Decode(&d); err != nil {
			return nil, wrap(err, "decode user")
		}
		out[d.ID] = d.model()
	}
	return out, wrap(cur.Err(), "get users")
}
