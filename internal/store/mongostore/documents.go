package mongostore

import (
	"time"

	"github.com/chucklechain/server/internal/models"
)

type userDoc struct {
	ID             string `bson:"_id"`
	Username       string `bson:"username"`
	ProfilePicture string `bson:"profile_picture"`
}

func (d userDoc) model() models.User {
	return models.User{ID: d.ID, Username: d.Username, ProfilePicture: d.ProfilePicture}
}

type lastMessageDoc struct {
	Text      string    `bson:"text"`
	SenderID  string    `bson:"sender_id"`
	Timestamp time.Time `bson:"timestamp"`
}

type conversationDoc struct {
	ID           string          `bson:"_id"`
	Participants []string        `bson:"participants"`
	PairKey      string          `bson:"pair_key"`
	LastMessage  *lastMessageDoc `bson:"last_message,omitempty"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
}

func (d conversationDoc) model() models.Conversation {
	c := models.Conversation{
		ID:        d.ID,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	copy(c.Participants[:], d.Participants)
	if d.LastMessage != nil {
		c.LastMessage = &models.LastMessage{
			Text:      d.LastMessage.Text,
			SenderID:  d.LastMessage.SenderID,
			Timestamp: d.LastMessage.Timestamp.UTC(),
		}
	}
	return c
}

type sharedPostDoc struct {
	PostID   string `bson:"post_id"`
	Image    string `bson:"image,omitempty"`
	Caption  string `bson:"caption,omitempty"`
	Username string `bson:"username,omitempty"`
}

type messageDoc struct {
	ID             string         `bson:"_id"`
	ConversationID string         `bson:"conversation_id"`
	SenderID       string         `bson:"sender_id"`
	Text           string         `bson:"text"`
	Image          string         `bson:"image,omitempty"`
	SharedPost     *sharedPostDoc `bson:"shared_post,omitempty"`
	ReplyTo        *string        `bson:"reply_to,omitempty"`
	Read           bool           `bson:"read"`
	ReadAt         *time.Time     `bson:"read_at,omitempty"`
	ReadBatch      string         `bson:"read_batch,omitempty"`
	CreatedAt      time.Time      `bson:"created_at"`
}

func newMessageDoc(m models.Message) messageDoc {
	d := messageDoc{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Image:          m.Image,
		ReplyTo:        m.ReplyTo,
		Read:           m.Read,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
	if m.SharedPost != nil {
		d.SharedPost = &sharedPostDoc{
			PostID:   m.SharedPost.PostID,
			Image:    m.SharedPost.Image,
			Caption:  m.SharedPost.Caption,
			Username: m.SharedPost.Username,
		}
	}
	return d
}

func (d messageDoc) model() models.Message {
	m := models.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Text:           d.Text,
		Image:          d.Image,
		ReplyTo:        d.ReplyTo,
		Read:           d.Read,
		CreatedAt:      d.CreatedAt.UTC(),
	}
	if d.ReadAt != nil {
		t := d.ReadAt.UTC()
		m.ReadAt = &t
	}
	if d.SharedPost != nil {
		m.SharedPost = &models.SharedPost{
			PostID:   d.SharedPost.PostID,
			Image:    d.SharedPost.Image,
			Caption:  d.SharedPost.Caption,
			Username: d.SharedPost.Username,
		}
	}
	return m
}

type notificationDoc struct {
	ID          string    `bson:"_id"`
	RecipientID string    `bson:"recipient_id"`
	SenderID    string    `bson:"sender_id"`
	Kind        string    `bson:"kind"`
	PostID      string    `bson:"post_id,omitempty"`
	CommentID   string    `bson:"comment_id,omitempty"`
	Content     string    `bson:"content"`
	Read        bool      `bson:"read"`
	CreatedAt   time.Time `bson:"created_at"`
}

func newNotificationDoc(n models.Notification) notificationDoc {
	return notificationDoc{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		Kind:        string(n.Kind),
		PostID:      n.PostID,
		CommentID:   n.CommentID,
		Content:     n.Content,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}

func (d notificationDoc) model() models.Notification {
	return models.Notification{
		ID:          d.ID,
		RecipientID: d.RecipientID,
		SenderID:    d.SenderID,
		Kind:        models.NotificationKind(d.Kind),
		PostID:      d.PostID,
		CommentID:   d.CommentID,
		Content:     d.Content,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type postDoc struct {
	ID        string    `bson:"_id"`
	AuthorID  string    `bson:"author_id"`
	Caption   string    `bson:"caption"`
	Image     string    `bson:"image,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	PostID    string    `bson:"post_id"`
	AuthorID  string    `bson:"author_id"`
	ParentID  string    `bson:"parent_id,omitempty"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

// edgeDoc is a like or follow. The _id is "<a>|<b>" so a duplicate insert is
// rejected by the primary key.
type edgeDoc struct {
	ID string `bson:"_id"`
	A  string `bson:"a"`
	B  string `bson:"b"`
}
