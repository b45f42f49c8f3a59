package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/store"
	"github.com/chucklechain/server/pkg/types"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/gin-gonic/gin"
)

// ChatStore is the durable surface behind the conversation endpoints.
type ChatStore interface {
	store.Users
	store.Conversations
	store.Messages
}

type ConversationsHandler struct {
	store     ChatStore
	deliverer Deliverer
	reads     ReadReconciler
	clock     Clock
}

func NewConversationsHandler(st ChatStore, deliverer Deliverer, reads ReadReconciler, clock Clock) *ConversationsHandler {
	return &ConversationsHandler{store: st, deliverer: deliverer, reads: reads, clock: clock}
}

type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

type LastMessageResponse struct {
	Text      string `json:"text"`
	SenderID  string `json:"senderId"`
	Timestamp string `json:"timestamp"`
}

type ConversationResponse struct {
	ID           string               `json:"id"`
	Participants []string             `json:"participants"`
	OtherUser    UserSummary          `json:"otherUser"`
	LastMessage  *LastMessageResponse `json:"lastMessage"`
	UpdatedAt    string               `json:"updatedAt"`
}

func userSummary(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

func conversationResponse(conv models.Conversation, viewer string, users map[string]models.User) ConversationResponse {
	other := conv.Other(viewer)
	u, ok := users[other]
	if !ok {
		u = models.User{ID: other}
	}
	resp := ConversationResponse{
		ID:           conv.ID,
		Participants: []string{conv.Participants[0], conv.Participants[1]},
		OtherUser:    userSummary(u),
		UpdatedAt:    wire.Timestamp(conv.UpdatedAt),
	}
	if conv.LastMessage != nil {
		resp.LastMessage = &LastMessageResponse{
			Text:      conv.LastMessage.Text,
			SenderID:  conv.LastMessage.SenderID,
			Timestamp: wire.Timestamp(conv.LastMessage.Timestamp),
		}
	}
	return resp
}

// MessagePayload renders a message the same way for HTTP responses and the
// newMessage push.
func MessagePayload(m models.Message) wire.NewMessagePayload {
	p := wire.NewMessagePayload{
		ID:             m.ID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Timestamp:      wire.Timestamp(m.CreatedAt),
		Read:           m.Read,
		ConversationID: m.ConversationID,
		Image:          m.Image,
		ReplyTo:        m.ReplyTo,
	}
	if m.SharedPost != nil {
		p.SharedPost = &wire.SharedPost{
			ID:       m.SharedPost.PostID,
			Image:    m.SharedPost.Image,
			Caption:  m.SharedPost.Caption,
			Username: m.SharedPost.Username,
		}
	}
	return p
}

func (h *ConversationsHandler) ListConversations(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	convs, err := h.store.ListConversations(ctx, userID)
	if err != nil {
		respondError(c, err, "list conversations")
		return
	}

	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.Other(userID))
	}
	users, err := h.store.GetUsers(ctx, ids)
	if err != nil {
		respondError(c, err, "list conversations")
		return
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, conversationResponse(conv, userID, users))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

type createConversationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *ConversationsHandler) CreateConversation(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}
	if req.UserID == userID {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "cannot start a conversation with yourself"})
		return
	}

	other, err := h.store.GetUser(ctx, req.UserID)
	if err != nil {
		respondError(c, err, "create conversation")
		return
	}

	conv, created, err := h.store.FindOrCreateConversation(ctx, userID, req.UserID, h.clock.newID(), h.clock.now())
	if err != nil {
		respondError(c, err, "create conversation")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conversationResponse(conv, userID, map[string]models.User{other.ID: other})})
}

// loadConversation fetches a conversation the caller participates in,
// writing the error response itself when it cannot.
func (h *ConversationsHandler) loadConversation(c *gin.Context, userID string) (models.Conversation, bool) {
	conv, err := h.store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "load conversation")
		return models.Conversation{}, false
	}
	if !conv.HasParticipant(userID) {
		respondError(c, realtime.ErrNotParticipant, "load conversation")
		return models.Conversation{}, false
	}
	return conv, true
}

func (h *ConversationsHandler) ListMessages(c *gin.Context) {
	userID := currentUser(c)
	conv, ok := h.loadConversation(c, userID)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 50)
	if limit <= 0 || limit > types.MaxPageLimit {
		limit = 50
	}
	before, err := parseBefore(c.Query("before"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid before cursor"})
		return
	}
	cursor := store.MessageCursor{Before: before, BeforeID: c.Query("beforeId")}

	msgs, err := h.store.ListMessages(c.Request.Context(), conv.ID, cursor, limit)
	if err != nil {
		respondError(c, err, "list messages")
		return
	}
	resp := MessagePageResponse{Messages: make([]wire.NewMessagePayload, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, MessagePayload(m))
	}
	if len(msgs) == limit {
		last := msgs[len(msgs)-1]
		resp.NextCursor = &MessageCursorResponse{Before: wire.Timestamp(last.CreatedAt), BeforeID: last.ID}
	}
	c.JSON(http.StatusOK, resp)
}

// MessageCursorResponse is passed back as ?before=&beforeId= for the next
// page.
type MessageCursorResponse struct {
	Before   string `json:"before"`
	BeforeID string `json:"beforeId"`
}

type MessagePageResponse struct {
	Messages   []wire.NewMessagePayload `json:"messages"`
	NextCursor *MessageCursorResponse   `json:"nextCursor,omitempty"`
}

type sharedPostRequest struct {
	ID       string `json:"_id"`
	Image    string `json:"image"`
	Caption  string `json:"caption"`
	Username string `json:"username"`
}

type sendMessageRequest struct {
	Text       string             `json:"text"`
	Image      string             `json:"image"`
	ReplyTo    *string            `json:"replyTo"`
	SharedPost *sharedPostRequest `json:"sharedPost"`
}

func (h *ConversationsHandler) SendMessage(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()
	conv, ok := h.loadConversation(c, userID)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" && req.Image == "" && req.SharedPost == nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "message must have text, an image or a shared post"})
		return
	}
	if req.SharedPost != nil && req.SharedPost.ID == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "shared post requires an id"})
		return
	}

	if req.ReplyTo != nil {
		parent, err := h.store.GetMessage(ctx, *req.ReplyTo)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondError(c, err, "send message")
			return
		}
		if err != nil || parent.ConversationID != conv.ID {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "replyTo must reference a message in this conversation"})
			return
		}
	}

	msg := models.Message{
		ID:             h.clock.newID(),
		ConversationID: conv.ID,
		SenderID:       userID,
		Text:           req.Text,
		Image:          req.Image,
		ReplyTo:        req.ReplyTo,
		CreatedAt:      h.clock.now(),
	}
	if req.SharedPost != nil {
		msg.SharedPost = &models.SharedPost{
			PostID:   req.SharedPost.ID,
			Image:    req.SharedPost.Image,
			Caption:  req.SharedPost.Caption,
			Username: req.SharedPost.Username,
		}
	}

	if err := h.store.CreateMessage(ctx, msg); err != nil {
		respondError(c, err, "send message")
		return
	}
	last := &models.LastMessage{Text: msg.Preview(), SenderID: userID, Timestamp: msg.CreatedAt}
	if err := h.store.SetLastMessage(ctx, conv.ID, last, msg.CreatedAt); err != nil {
		// The message is stored; a stale summary heals on the next send.
		logger.Warnf("SendMessage: summary update for %s failed: %v", conv.ID, err)
	}

	payload := MessagePayload(msg)
	c.JSON(http.StatusCreated, gin.H{"message": payload})

	recipient := conv.Other(userID)
	outcome := h.deliverer.Deliver(recipient, wire.EventNewMessage, payload)
	logger.Debugf("Message %s in %s to %s: %s", msg.ID, conv.ID, recipient, outcome)
}

func (h *ConversationsHandler) MarkRead(c *gin.Context) {
	userID := currentUser(c)
	res, err := h.reads.MarkConversationRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "mark conversation read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(res.Flipped), "delivered": res.Delivered})
}

func (h *ConversationsHandler) UnreadCount(c *gin.Context) {
	count, err := h.store.CountUnreadMessages(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "count unread messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *ConversationsHandler) DeleteMessage(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	msg, err := h.store.GetMessage(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "delete message")
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "only the sender can delete a message"})
		return
	}
	conv, err := h.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		respondError(c, err, "delete message")
		return
	}

	if err := h.store.DeleteMessage(ctx, msg.ID); err != nil {
		respondError(c, err, "delete message")
		return
	}

	var last *models.LastMessage
	latest, err := h.store.LatestMessage(ctx, conv.ID)
	switch {
	case err == nil:
		last = &models.LastMessage{Text: latest.Preview(), SenderID: latest.SenderID, Timestamp: latest.CreatedAt}
	case !errors.Is(err, store.ErrNotFound):
		logger.Warnf("DeleteMessage: latest message for %s: %v", conv.ID, err)
	}
	if err == nil || errors.Is(err, store.ErrNotFound) {
		if err := h.store.SetLastMessage(ctx, conv.ID, last, h.clock.now()); err != nil {
			logger.Warnf("DeleteMessage: summary update for %s failed: %v", conv.ID, err)
		}
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})

	h.deliverer.Deliver(conv.Other(userID), wire.EventMessageDeleted, wire.MessageDeletedPayload{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
	})
}
