package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/store"
	"github.com/chucklechain/server/pkg/wire"
)

var (
	// ErrConversationNotFound is returned for an unknown conversation id.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrNotParticipant is returned when the caller is not one of the two
	// participants of the conversation.
	ErrNotParticipant = errors.New("not a participant in this conversation")
)

// ReadStore is the durable surface the Reconciler needs.
type ReadStore interface {
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]models.ReadReceipt, error)
}

// ReadResult reports what one mark-read call changed.
type ReadResult struct {
	// Flipped holds the ids this call moved from unread to read.
	Flipped []string
	// Delivered counts messageRead receipts pushed to online senders.
	Delivered int
}

// Reconciler is the single mark-conversation-read implementation shared by
// the HTTP request path and the socket messagesRead signal.
type Reconciler struct {
	store    ReadStore
	sessions *SessionStore
	router   *Router
	now      func() time.Time
}

// NewReconciler wires a Reconciler. A nil clock uses time.Now.
func NewReconciler(st ReadStore, sessions *SessionStore, router *Router, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{store: st, sessions: sessions, router: router, now: now}
}

// MarkConversationRead flips every unread message in conversationID that
// readerID did not author, then sends one messageRead receipt per flipped
// message to its sender when that sender is online.
//
// The flip is a single filtered update, so repeating the call (from either
// trigger, or concurrently) flips nothing the second time and emits no
// duplicate receipts.
func (r *Reconciler) MarkConversationRead(ctx context.Context, conversationID, readerID string) (ReadResult, error) {
	conv, err := r.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReadResult{}, ErrConversationNotFound
		}
		return ReadResult{}, fmt.Errorf("load conversation: %w", err)
	}
	if !conv.HasParticipant(readerID) {
		return ReadResult{}, ErrNotParticipant
	}

	at := r.now()
	receipts, err := r.store.MarkConversationRead(ctx, conversationID, readerID, at)
	if err != nil {
		return ReadResult{}, fmt.Errorf("mark conversation read: %w", err)
	}

	result := ReadResult{Flipped: make([]string, 0, len(receipts))}
	ts := wire.Timestamp(at)
	for _, rc := range receipts {
		result.Flipped = append(result.Flipped, rc.MessageID)

		// Offline senders see the flag on their next fetch.
		if !r.sessions.IsOnline(rc.SenderID) {
			continue
		}
		outcome := r.router.Deliver(rc.SenderID, wire.EventMessageRead, wire.MessageReadPayload{
			ConversationID: conversationID,
			MessageID:      rc.MessageID,
			ReadBy:         readerID,
			Timestamp:      ts,
		})
		if outcome == Delivered {
			result.Delivered++
		}
	}

	if len(receipts) > 0 {
		logger.Debugf("Conversation %s: %d messages read by %s, %d receipts delivered",
			conversationID, len(receipts), readerID, result.Delivered)
	}
	return result, nil
}
