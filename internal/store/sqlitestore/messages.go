package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/store"
)

const messageColumns = `id, conversation_id, sender_id, text, image, shared_post, reply_to, read, read_at, created_at`

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		m          models.Message
		sharedPost sql.NullString
		replyTo    sql.NullString
		read       int
		readAt     sql.NullInt64
		createdAt  int64
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Image, &sharedPost, &replyTo, &read, &readAt, &createdAt); err != nil {
		return models.Message{}, err
	}
	m.Read = read != 0
	m.CreatedAt = fromMillis(createdAt)
	if readAt.Valid {
		t := fromMillis(readAt.Int64)
		m.ReadAt = &t
	}
	if replyTo.Valid {
		r := replyTo.String
		m.ReplyTo = &r
	}
	if sharedPost.Valid && sharedPost.String != "" {
		var sp models.SharedPost
		if err := json.Unmarshal([]byte(sharedPost.String), &sp); err != nil {
			return models.Message{}, err
		}
		m.SharedPost = &sp
	}
	return m, nil
}

func (s *Store) CreateMessage(ctx context.Context, m models.Message) error {
	var sharedPost sql.NullString
	if m.SharedPost != nil {
		raw, err := json.Marshal(m.SharedPost)
		if err != nil {
			return wrap(err, "encode shared post")
		}
		sharedPost = sql.NullString{String: string(raw), Valid: true}
	}
	var replyTo sql.NullString
	if m.ReplyTo != nil {
		replyTo = sql.NullString{String: *m.ReplyTo, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, text, image, shared_post, reply_to, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.Text, m.Image, sharedPost, replyTo, boolToInt(m.Read), toMillis(m.CreatedAt),
	)
	return wrap(err, "create message")
}

func (s *Store) GetMessage(ctx context.Context, id string) (models.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id,
	))
	return m, wrap(err, "get message")
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, cursor store.MessageCursor, limit int) ([]models.Message, error) {
	bound := int64(1<<63 - 1)
	if !cursor.Before.IsZero() {
		bound = toMillis(cursor.Before)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		  AND (created_at < ? OR (created_at = ? AND id < ?))
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		conversationID, bound, bound, cursor.BeforeID, limit,
	)
	if err != nil {
		return nil, wrap(err, "list messages")
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, wrap(err, "scan message")
		}
		out = append(out, m)
	}
	return out, wrap(rows.Err(), "list messages")
}

func (s *Store) LatestMessage(ctx context.Context, conversationID string) (models.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		conversationID,
	))
	return m, wrap(err, "latest message")
}

// MarkConversationRead uses UPDATE ... RETURNING so the filter and the flip
// are one statement; concurrent callers can never both observe the same row
// as unread.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]models.ReadReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE messages SET read = 1, read_at = ?
		WHERE conversation_id = ? AND sender_id <> ? AND read = 0
		RETURNING id, sender_id`,
		toMillis(at), conversationID, readerID,
	)
	if err != nil {
		return nil, wrap(err, "mark conversation read")
	}
	defer rows.Close()

	var out []models.ReadReceipt
	for rows.Next() {
		var r models.ReadReceipt
		if err := rows.Scan(&r.MessageID, &r.SenderID); err != nil {
			return nil, wrap(err, "scan read receipt")
		}
		out = append(out, r)
	}
	return out, wrap(rows.Err(), "mark conversation read")
}

func (s *Store) CountUnreadMessages(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.participant_a = ? OR c.participant_b = ?)
		  AND m.sender_id <> ? AND m.read = 0`,
		userID, userID, userID,
	).Scan(&n)
	return n, wrap(err, "count unread messages")
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return wrap(err, "delete message")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrap(sql.ErrNoRows, "delete message")
	}
	return nil
}
