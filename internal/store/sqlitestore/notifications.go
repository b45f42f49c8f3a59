package sqlitestore

import (
	"context"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/pkg/types"
)

const notificationColumns = `id, recipient_id, sender_id, kind, post_id, comment_id, content, read, created_at`

func scanNotification(row rowScanner) (models.Notification, error) {
	var (
		n         models.Notification
		kind      string
		read      int
		createdAt int64
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.SenderID, &kind, &n.PostID, &n.CommentID, &n.Content, &read, &createdAt); err != nil {
		return models.Notification{}, err
	}
	n.Kind = models.NotificationKind(kind)
	n.Read = read != 0
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

func (s *Store) CreateNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, kind, post_id, comment_id, content, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.SenderID, string(n.Kind), n.PostID, n.CommentID, n.Content, boolToInt(n.Read), toMillis(n.CreatedAt),
	)
	return wrap(err, "create notification")
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, page types.PageParams) ([]models.Notification, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ?`, recipientID,
	).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count notifications")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		recipientID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, wrap(err, "list notifications")
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, wrap(err, "scan notification")
		}
		out = append(out, n)
	}
	return out, total, wrap(rows.Err(), "list notifications")
}

func (s *Store) CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read = 0`, recipientID,
	).Scan(&n)
	return n, wrap(err, "count unread notifications")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND recipient_id = ? AND read = 0`,
		id, recipientID,
	)
	if err != nil {
		return false, wrap(err, "mark notification read")
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	// Zero rows: either already read or not ours.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE id = ? AND recipient_id = ?`, id, recipientID,
	).Scan(&exists)
	return false, wrap(err, "mark notification read")
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0`, recipientID,
	)
	if err != nil {
		return 0, wrap(err, "mark all notifications read")
	}
	n, err := res.RowsAffected()
	return n, wrap(err, "mark all notifications read")
}
