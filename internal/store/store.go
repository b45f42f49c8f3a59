// Package store defines the durable data-access contract used by the
// real-time layer and the HTTP triggers. Implementations live in mongostore
// and sqlitestore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/pkg/types"
)

// ErrNotFound is returned when a looked-up record does not exist (or is not
// visible to the caller).
var ErrNotFound = errors.New("not found")

// Users resolves user profiles.
type Users interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Conversations owns two-party conversation records.
type Conversations interface {
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	// FindOrCreateConversation returns the conversation between a and b,
	// creating it with newID when none exists.
	FindOrCreateConversation(ctx context.Context, a, b, newID string, now time.Time) (models.Conversation, bool, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	// SetLastMessage replaces the list summary; nil clears it.
	SetLastMessage(ctx context.Context, conversationID string, last *models.LastMessage, now time.Time) error
}

// MessageCursor positions a page of message history. The zero value starts
// at the newest message. BeforeID orders messages that share Before; when it
// is empty every message at Before is excluded.
type MessageCursor struct {
	Before   time.Time
	BeforeID string
}

// Messages owns chat messages.
type Messages interface {
	CreateMessage(ctx context.Context, m models.Message) error
	GetMessage(ctx context.Context, id string) (models.Message, error)
	// ListMessages returns up to limit messages strictly after cursor in
	// newest-first order.
	ListMessages(ctx context.Context, conversationID string, cursor MessageCursor, limit int) ([]models.Message, error)
	// LatestMessage returns the newest message in a conversation.
	LatestMessage(ctx context.Context, conversationID string) (models.Message, error)
	// MarkConversationRead flips every unread message in the conversation not
	// authored by readerID to read in a single filtered update and returns
	// exactly the messages this call flipped.
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]models.ReadReceipt, error)
	// CountUnreadMessages counts unread messages addressed to userID across all
	// of their conversations.
	CountUnreadMessages(ctx context.Context, userID string) (int64, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Notifications owns notification records.
type Notifications interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	// ListNotifications returns one page for a recipient, newest first, and
	// the total count.
	ListNotifications(ctx context.Context, recipientID string, page types.PageParams) ([]models.Notification, int64, error)
	CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error)
	// MarkNotificationRead flips a single notification owned by recipientID.
	// It reports whether this call changed it; ErrNotFound when the
	// notification does not belong to the recipient.
	MarkNotificationRead(ctx context.Context, id, recipientID string) (bool, error)
	// MarkAllNotificationsRead flips recipient=me AND read=false and returns
	// the number flipped.
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
}

// Social holds the minimal post/comment/follow collaborators the activity
// endpoints mutate before fanning out.
type Social interface {
	CreatePost(ctx context.Context, p models.Post) error
	GetPost(ctx context.Context, id string) (models.Post, error)
	// TogglePostLike likes or unlikes; it reports the resulting state.
	TogglePostLike(ctx context.Context, postID, userID string) (bool, error)
	CreateComment(ctx context.Context, c models.Comment) error
	GetComment(ctx context.Context, id string) (models.Comment, error)
	ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error)
	// ToggleFollow follows or unfollows; it reports the resulting state.
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
}

// Store is the full durable contract.
type Store interface {
	Users
	Conversations
	Messages
	Notifications
	Social

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
