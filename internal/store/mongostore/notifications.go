package mongostore

import (
	"context"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/pkg/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.Collection(collNotifications).InsertOne(ctx, newNotificationDoc(n))
	return wrap(err, "create notification")
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, page types.PageParams) ([]models.Notification, int64, error) {
	coll := s.db.Collection(collNotifications)
	filter := bson.M{"recipient_id": recipientID}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrap(err, "count notifications")
	}

	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit)),
	)
	if err != nil {
		return nil, 0, wrap(err, "list notifications")
	}
	defer closeCursor(ctx, cur)

	var out []models.Notification
	for cur.Next(ctx) {
		var d notificationDoc
		if err := cur.Decode(&d); err != nil {
			return nil, 0, wrap(err, "decode notification")
		}
		out = append(out, d.model())
	}
	return out, total, wrap(cur.Err(), "list notifications")
}

func (s *Store) CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error) {
	n, err := s.db.Collection(collNotifications).CountDocuments(ctx, bson.M{
		"recipient_id": recipientID,
		"read":         false,
	})
	return n, wrap(err, "count unread notifications")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID string) (bool, error) {
	res, err := s.db.Collection(collNotifications).UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return false, wrap(err, "mark notification read")
	}
	if res.MatchedCount == 0 {
		return false, wrap(mongo.ErrNoDocuments, "mark notification read")
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := s.db.Collection(collNotifications).UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, wrap(err, "mark all notifications read")
	}
	return res.ModifiedCount, nil
}
