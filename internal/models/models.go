package models

import (
	"fmt"
	"time"
)

// User is the slice of a user profile needed to render notifications.
type User struct {
	ID             string
	Username       string
	ProfilePicture string
}

// LastMessage is the denormalized conversation summary used by list views.
type LastMessage struct {
	Text      string
	SenderID  string
	Timestamp time.Time
}

// Conversation is a two-party chat.
type Conversation struct {
	ID           string
	Participants [2]string
	LastMessage  *LastMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.Participants[0] == userID || c.Participants[1] == userID)
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// SharedPost is a post snapshot embedded in a message.
type SharedPost struct {
	PostID   string
	Image    string
	Caption  string
	Username string
}

// Message is a chat message. Read only ever moves false to true.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	Image          string
	SharedPost     *SharedPost
	ReplyTo        *string
	Read           bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}

// Preview is the text used for the conversation summary.
func (m Message) Preview() string {
	switch {
	case m.Text != "":
		return m.Text
	case m.SharedPost != nil:
		return "Shared a post"
	case m.Image != "":
		return "Sent an image"
	default:
		return ""
	}
}

// ReadReceipt identifies one message flipped to read by a mark-read call.
type ReadReceipt struct {
	MessageID string
	SenderID  string
}

// NotificationKind is the type of activity a notification reports.
type NotificationKind string

const (
	KindLike         NotificationKind = "like"
	KindComment      NotificationKind = "comment"
	KindCommentLike  NotificationKind = "comment_like"
	KindCommentReply NotificationKind = "comment_reply"
	KindFollow       NotificationKind = "follow"
	KindTag          NotificationKind = "tag"
)

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindLike, KindComment, KindCommentLike, KindCommentReply, KindFollow, KindTag:
		return true
	}
	return false
}

// ParseNotificationKind validates a stored or client-supplied kind.
func ParseNotificationKind(raw string) (NotificationKind, error) {
	k := NotificationKind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("unknown notification kind %q", raw)
	}
	return k, nil
}

// Notification is a durable activity record for one recipient. Read only
// ever moves false to true.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	Kind        NotificationKind
	PostID      string
	CommentID   string
	Content     string
	Read        bool
	CreatedAt   time.Time
}

// Post is the minimal post record the activity endpoints act on.
type Post struct {
	ID        string
	AuthorID  string
	Caption   string
	Image     string
	CreatedAt time.Time
}

// Comment is a comment or a reply on a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	ParentID  string
	Text      string
	CreatedAt time.Time
}
