// Package wire defines the Socket.IO event names and payloads exchanged with
// web and mobile clients.
package wire

import "time"

// Client to server events.
const (
	EventGetOnlineUsers = "getOnlineUsers"
	EventMessagesRead   = "messagesRead"
)

// Server to client events.
const (
	EventWelcome           = "welcome"
	EventOnlineUsers       = "onlineUsers"
	EventUserConnected     = "userConnected"
	EventUserDisconnected  = "userDisconnected"
	EventNewMessage        = "newMessage"
	EventNewNotification   = "newNotification"
	EventMessageRead       = "messageRead"
	EventMessageDeleted    = "messageDeleted"
	EventUpdateUnreadCount = "updateUnreadCount"
	// EventError carries a handshake refusal reason just before the server
	// closes the socket.
	EventError = "error"
)

// TimestampFormat is the ISO-8601 layout used for every timestamp on the wire.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC using TimestampFormat.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// WelcomePayload is sent privately to a freshly authenticated connection.
type WelcomePayload struct {
	Message string `json:"message"`
}

// UserConnectedPayload announces that a user came online.
type UserConnectedPayload struct {
	UserID string `json:"userId"`
}

// UserDisconnectedPayload announces that a user went offline.
type UserDisconnectedPayload struct {
	UserID string `json:"userId"`
	// Timestamp is the user's lastSeen in ISO-8601.
	Timestamp string `json:"timestamp"`
}

// MessagesReadPayload is the client's optimistic "I have this conversation
// open" signal.
type MessagesReadPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// SharedPost is a snapshot of a post shared into a chat.
type SharedPost struct {
	ID       string `json:"_id"`
	Image    string `json:"image,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Username string `json:"username,omitempty"`
}

// NewMessagePayload is a chat message pushed to the other participant.
type NewMessagePayload struct {
	ID             string      `json:"id"`
	SenderID       string      `json:"senderId"`
	Text           string      `json:"text"`
	Timestamp      string      `json:"timestamp"`
	Read           bool        `json:"read"`
	ConversationID string      `json:"conversationId"`
	Image          string      `json:"image,omitempty"`
	ReplyTo        *string     `json:"replyTo,omitempty"`
	SharedPost     *SharedPost `json:"sharedPost,omitempty"`
}

// NotificationUser is the denormalized sender snapshot inside a notification.
type NotificationUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

// NewNotificationPayload is a fully rendered notification; clients never need
// a follow-up fetch to display it.
type NewNotificationPayload struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	User      NotificationUser `json:"user"`
	Content   string           `json:"content"`
	PostID    string           `json:"postId,omitempty"`
	Read      bool             `json:"read"`
	Timestamp string           `json:"timestamp"`
}

// MessageReadPayload is a read receipt sent to the original sender.
type MessageReadPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	ReadBy         string `json:"readBy"`
	Timestamp      string `json:"timestamp"`
}

// MessageDeletedPayload tells the other participant to drop a message.
type MessageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// UpdateUnreadCountPayload is payload-free; clients re-fetch their badge.
type UpdateUnreadCountPayload struct{}

// ErrorPayload carries a connection refusal reason.
type ErrorPayload struct {
	Message string `json:"message"`
}
