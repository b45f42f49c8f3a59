package mongostore

import (
	"context"
	"time"

	"github.com/chucklechain/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	var d conversationDoc
	if err := s.db.Collection(collConversations).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.Conversation{}, wrap(err, "get conversation")
	}
	return d.model(), nil
}

// FindOrCreateConversation upserts on the unique pair key. Two racing
// creators both end up with the same document; the loser of the unique index
// race retries as a plain find.
func (s *Store) FindOrCreateConversation(ctx context.Context, a, b, newID string, now time.Time) (models.Conversation, bool, error) {
	key := pairKey(a, b)
	coll := s.db.Collection(collConversations)

	update := bson.M{"$setOnInsert": bson.M{
		"_id":          newID,
		"participants": []string{a, b},
		"pair_key":     key,
		"created_at":   now,
		"updated_at":   now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var d conversationDoc
	err := coll.FindOneAndUpdate(ctx, bson.M{"pair_key": key}, update, opts).Decode(&d)
	if mongo.IsDuplicateKeyError(err) {
		err = coll.FindOne(ctx, bson.M{"pair_key": key}).Decode(&d)
	}
	if err != nil {
		return models.Conversation{}, false, wrap(err, "find or create conversation")
	}
	return d.model(), d.ID == newID, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	cur, err := s.db.Collection(collConversations).Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, wrap(err, "list conversations")
	}
	defer closeCursor(ctx, cur)

	var out []models.Conversation
	for cur.Next(ctx) {
		var d conversationDoc
		if err := cur.Decode(&d); err != nil {
			return nil, wrap(err, "decode conversation")
		}
		out = append(out, d.model())
	}
	return out, wrap(cur.Err(), "list conversations")
}

func (s *Store) SetLastMessage(ctx context.Context, conversationID string, last *models.LastMessage, now time.Time) error {
	var update bson.M
	if last == nil {
		update = bson.M{
			"$unset": bson.M{"last_message": ""},
			"$set":   bson.M{"updated_at": now},
		}
	} else {
		update = bson.M{"$set": bson.M{
			"last_message": lastMessageDoc{
				Text:      last.Text,
				SenderID:  last.SenderID,
				Timestamp: last.Timestamp,
			},
			"updated_at": now,
		}}
	}
	res, err := s.db.Collection(collConversations).UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return wrap(err, "set last message")
	}
	if res.MatchedCount == 0 {
		return wrap(mongo.ErrNoDocuments, "set last message")
	}
	return nil
}
