package handlers

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/stretchr/testify/require"
)

type messageResponse struct {
	Message wire.NewMessagePayload `json:"message"`
}

func TestSendMessage_OfflineRecipientReadsLater(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	convID := h.startConversation("alice", "bob")

	rec := h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "alice", map[string]string{"text": "hey bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[messageResponse](t, rec).Message
	require.False(t, sent.Read)
	require.Equal(t, "alice", sent.SenderID)
	require.Equal(t, convID, sent.ConversationID)

	unread := decode[map[string]int64](t, h.do(http.MethodGet, "/v1/conversations/unread-count", "bob", nil))
	require.Equal(t, int64(1), unread["count"])

	list := decode[struct {
		Messages []wire.NewMessagePayload `json:"messages"`
	}](t, h.do(http.MethodGet, "/v1/conversations/"+convID+"/messages", "bob", nil))
	require.Len(t, list.Messages, 1)
	require.Equal(t, "hey bob", list.Messages[0].Text)

	convs := decode[struct {
		Conversations []ConversationResponse `json:"conversations"`
	}](t, h.do(http.MethodGet, "/v1/conversations", "bob", nil))
	require.Len(t, convs.Conversations, 1)
	require.Equal(t, "alice", convs.Conversations[0].OtherUser.Username)
	require.NotNil(t, convs.Conversations[0].LastMessage)
	require.Equal(t, "hey bob", convs.Conversations[0].LastMessage.Text)
}

func TestSendMessage_DeliversToOnlineRecipient(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	convID := h.startConversation("alice", "bob")
	bob := h.online("bob")

	rec := h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "alice", map[string]any{
		"text":       "look at this",
		"sharedPost": map[string]string{"_id": "p1", "caption": "lol"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	pushed := bob.named(wire.EventNewMessage)
	require.Len(t, pushed, 1)
	msg := pushed[0].(wire.NewMessagePayload)
	require.Equal(t, "look at this", msg.Text)
	require.NotNil(t, msg.SharedPost)
	require.Equal(t, "p1", msg.SharedPost.ID)
}

func TestMarkRead_ReceiptsToOnlineSender(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	convID := h.startConversation("alice", "bob")
	for _, text := range []string{"one", "two"} {
		rec := h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "alice", map[string]string{"text": text})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	alice := h.online("alice")

	res := decode[map[string]int](t, h.do(http.MethodPost, "/v1/conversations/"+convID+"/read", "bob", nil))
	require.Equal(t, 2, res["updated"])
	require.Equal(t, 2, res["delivered"])
	require.Len(t, alice.named(wire.EventMessageRead), 2)

	again := decode[map[string]int](t, h.do(http.MethodPost, "/v1/conversations/"+convID+"/read", "bob", nil))
	require.Equal(t, 0, again["updated"])
	require.Len(t, alice.named(wire.EventMessageRead), 2)
}

func TestConversationAccessRules(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	h.user("mallory", "mallory")
	convID := h.startConversation("alice", "bob")

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/conversations", "alice", map[string]string{"userId": "alice"}).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/v1/conversations", "alice", map[string]string{"userId": "ghost"}).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/conversations", "bob", map[string]string{"userId": "alice"}).Code)

	require.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/v1/conversations/"+convID+"/messages", "mallory", nil).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "mallory", map[string]string{"text": "hi"}).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/v1/conversations/"+convID+"/read", "mallory", nil).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/v1/conversations/nope/read", "bob", nil).Code)
	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/v1/conversations", "", nil).Code)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "alice", map[string]string{"text": "  "}).Code)
}

func TestSendMessage_ReplyMustStayInConversation(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	h.user("carol", "carol")
	ab := h.startConversation("alice", "bob")
	ac := h.startConversation("alice", "carol")

	rec := h.do(http.MethodPost, "/v1/conversations/"+ac+"/messages", "alice", map[string]string{"text": "for carol"})
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decode[messageResponse](t, rec).Message

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/conversations/"+ab+"/messages", "alice", map[string]any{
		"text": "reply", "replyTo": other.ID,
	}).Code)

	rec = h.do(http.MethodPost, "/v1/conversations/"+ac+"/messages", "carol", map[string]any{
		"text": "reply", "replyTo": other.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reply := decode[messageResponse](t, rec).Message
	require.NotNil(t, reply.ReplyTo)
	require.Equal(t, other.ID, *reply.ReplyTo)
}

func TestDeleteMessage_SenderOnlyAndRecomputesSummary(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	convID := h.startConversation("alice", "bob")

	first := decode[messageResponse](t, h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "alice", map[string]string{"text": "first"})).Message
	second := decode[messageResponse](t, h.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", "alice", map[string]string{"text": "second"})).Message
	bob := h.online("bob")

	require.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/v1/messages/"+second.ID, "bob", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/v1/messages/"+second.ID, "alice", nil).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/messages/"+second.ID, "alice", nil).Code)

	require.Equal(t, []any{wire.MessageDeletedPayload{MessageID: second.ID, ConversationID: convID}}, bob.named(wire.EventMessageDeleted))

	convs := decode[struct {
		Conversations []ConversationResponse `json:"conversations"`
	}](t, h.do(http.MethodGet, "/v1/conversations", "alice", nil))
	require.Equal(t, "first", convs.Conversations[0].LastMessage.Text)

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/v1/messages/"+first.ID, "alice", nil).Code)
	convs = decode[struct {
		Conversations []ConversationResponse `json:"conversations"`
	}](t, h.do(http.MethodGet, "/v1/conversations", "alice", nil))
	require.Nil(t, convs.Conversations[0].LastMessage)
}

func TestListMessages_NextCursorWalksSameMillisecondMessages(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bob")
	convID := h.startConversation("alice", "bob")

	at := apiEpoch.Add(time.Hour)
	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, h.store.CreateMessage(context.Background(), models.Message{
			ID:             id,
			ConversationID: convID,
			SenderID:       "alice",
			Text:           id,
			CreatedAt:      at,
		}))
	}

	path := "/v1/conversations/" + convID + "/messages?limit=2"
	page := decode[MessagePageResponse](t, h.do(http.MethodGet, path, "bob", nil))
	require.Len(t, page.Messages, 2)
	require.Equal(t, "m3", page.Messages[0].ID)
	require.Equal(t, "m2", page.Messages[1].ID)
	require.NotNil(t, page.NextCursor)
	require.Equal(t, MessageCursorResponse{Before: wire.Timestamp(at), BeforeID: "m2"}, *page.NextCursor)

	next := path + "&before=" + url.QueryEscape(page.NextCursor.Before) + "&beforeId=" + page.NextCursor.BeforeID
	page = decode[MessagePageResponse](t, h.do(http.MethodGet, next, "bob", nil))
	require.Len(t, page.Messages, 1)
	require.Equal(t, "m1", page.Messages[0].ID)
	require.Nil(t, page.NextCursor)
}
