package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/chucklechain/server/internal/models"
)

const conversationColumns = `id, participant_a, participant_b, last_text, last_sender, last_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (models.Conversation, error) {
	var (
		c          models.Conversation
		lastText   sql.NullString
		lastSender sql.NullString
		lastAt     sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &lastText, &lastSender, &lastAt, &createdAt, &updatedAt); err != nil {
		return models.Conversation{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	if lastAt.Valid {
		c.LastMessage = &models.LastMessage{
			Text:      lastText.String,
			SenderID:  lastSender.String,
			Timestamp: fromMillis(lastAt.Int64),
		}
	}
	return c, nil
}

// pairKey is the order-independent identity of a two-party conversation.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id,
	))
	return c, wrap(err, "get conversation")
}

func (s *Store) FindOrCreateConversation(ctx context.Context, a, b, newID string, now time.Time) (models.Conversation, bool, error) {
	key := pairKey(a, b)
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversations (id, participant_a, participant_b, pair_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		newID, a, b, key, toMillis(now), toMillis(now),
	)
	if err != nil {
		return models.Conversation{}, false, wrap(err, "create conversation")
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Conversation{}, false, wrap(err, "create conversation")
	}

	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE pair_key = ?`, key,
	))
	if err != nil {
		return models.Conversation{}, false, wrap(err, "get conversation by pair")
	}
	return c, inserted == 1, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY updated_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, wrap(err, "list conversations")
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, wrap(err, "scan conversation")
		}
		out = append(out, c)
	}
	return out, wrap(rows.Err(), "list conversations")
}

func (s *Store) SetLastMessage(ctx context.Context, conversationID string, last *models.LastMessage, now time.Time) error {
	var (
		text   sql.NullString
		sender sql.NullString
		at     sql.NullInt64
	)
	if last != nil {
		text = sql.NullString{String: last.Text, Valid: true}
		sender = sql.NullString{String: last.SenderID, Valid: true}
		at = sql.NullInt64{Int64: toMillis(last.Timestamp), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_text = ?, last_sender = ?, last_at = ?, updated_at = ?
		WHERE id = ?`,
		text, sender, at, toMillis(now), conversationID,
	)
	if err != nil {
		return wrap(err, "set last message")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrap(sql.ErrNoRows, "set last message")
	}
	return nil
}
