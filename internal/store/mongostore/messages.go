package mongostore

import (
	"context"
	"time"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) CreateMessage(ctx context.Context, m models.Message) error {
	_, err := s.db.Collection(collMessages).InsertOne(ctx, newMessageDoc(m))
	return wrap(err, "create message")
}

func (s *Store) GetMessage(ctx context.Context, id string) (models.Message, error) {
	var d messageDoc
	if err := s.db.Collection(collMessages).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.Message{}, wrap(err, "get message")
	}
	return d.model(), nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, cursor store.MessageCursor, limit int) ([]models.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	switch {
	case cursor.Before.IsZero():
	case cursor.BeforeID == "":
		filter["created_at"] = bson.M{"$lt": cursor.Before}
	default:
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": cursor.Before}},
			bson.M{"created_at": cursor.Before, "_id": bson.M{"$lt": cursor.BeforeID}},
		}
	}
	cur, err := s.db.Collection(collMessages).Find(ctx, filter,
		options.Find().SetSort(newestFirst).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, wrap(err, "list messages")
	}
	defer closeCursor(ctx, cur)

	var out []models.Message
	for cur.Next(ctx) {
		var d messageDoc
		if err := cur.Decode(&d); err != nil {
			return nil, wrap(err, "decode message")
		}
		out = append(out, d.model())
	}
	return out, wrap(cur.Err(), "list messages")
}

func (s *Store) LatestMessage(ctx context.Context, conversationID string) (models.Message, error) {
	var d messageDoc
	err := s.db.Collection(collMessages).FindOne(ctx,
		bson.M{"conversation_id": conversationID},
		options.FindOne().SetSort(newestFirst),
	).Decode(&d)
	if err != nil {
		return models.Message{}, wrap(err, "latest message")
	}
	return d.model(), nil
}

// MarkConversationRead tags every flipped document with a fresh batch id in
// the same UpdateMany that filters on read=false. Each document update is
// atomic, so a document carries the batch of exactly one caller, and the
// follow-up find by batch returns only what this call flipped.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]models.ReadReceipt, error) {
	batch := s.newID()
	coll := s.db.Collection(collMessages)

	res, err := coll.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
			"read":            false,
		},
		bson.M{"$set": bson.M{
			"read":       true,
			"read_at":    at,
			"read_batch": batch,
		}},
	)
	if err != nil {
		return nil, wrap(err, "mark conversation read")
	}
	if res.ModifiedCount == 0 {
		return nil, nil
	}

	cur, err := coll.Find(ctx,
		bson.M{"read_batch": batch},
		options.Find().SetProjection(bson.M{"_id": 1, "sender_id": 1}),
	)
	if err != nil {
		return nil, wrap(err, "find read batch")
	}
	defer closeCursor(ctx, cur)

	out := make([]models.ReadReceipt, 0, res.ModifiedCount)
	for cur.Next(ctx) {
		var d struct {
			ID       string `bson:"_id"`
			SenderID string `bson:"sender_id"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, wrap(err, "decode read receipt")
		}
		out = append(out, models.ReadReceipt{MessageID: d.ID, SenderID: d.SenderID})
	}
	return out, wrap(cur.Err(), "find read batch")
}

func (s *Store) CountUnreadMessages(ctx context.Context, userID string) (int64, error) {
	ids, err := s.db.Collection(collConversations).Distinct(ctx, "_id", bson.M{"participants": userID})
	if err != nil {
		return 0, wrap(err, "list conversation ids")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.db.Collection(collMessages).CountDocuments(ctx, bson.M{
		"conversation_id": bson.M{"$in": ids},
		"sender_id":       bson.M{"$ne": userID},
		"read":            false,
	})
	return n, wrap(err, "count unread messages")
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.Collection(collMessages).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap(err, "delete message")
	}
	if res.DeletedCount == 0 {
		return wrap(mongo.ErrNoDocuments, "delete message")
	}
	return nil
}
