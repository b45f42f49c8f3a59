package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/chucklechain/server/internal/models"
	"github.com/stretchr/testify/require"
)

func (h *apiHarness) seedNotification(id, recipient, sender string) {
	h.t.Helper()
	require.NoError(h.t, h.store.CreateNotification(context.Background(), models.Notification{
		ID:          id,
		RecipientID: recipient,
		SenderID:    sender,
		Kind:        models.KindFollow,
		Content:     "started following you",
		CreatedAt:   h.now(),
	}))
}

func TestNotifications_ListCountAndRead(t *testing.T) {
	h := newAPIHarness(t)
	h.user("alice", "alice")
	h.user("bob", "bobby")
	h.seedNotification("n1", "alice", "bob")
	h.seedNotification("n2", "alice", "bob")
	h.seedNotification("n3", "alice", "ghost")
	h.seedNotification("n4", "bob", "alice")

	list := decode[NotificationListResponse](t, h.do(http.MethodGet, "/v1/notifications?limit=2&page=1", "alice", nil))
	require.Equal(t, int64(3), list.Total)
	require.True(t, list.HasMore)
	require.Len(t, list.Notifications, 2)
	require.Equal(t, "n3", list.Notifications[0].ID)
	require.Equal(t, "ghost", list.Notifications[0].User.ID)
	require.Equal(t, "bobby", list.Notifications[1].User.Username)

	page2 := decode[NotificationListResponse](t, h.do(http.MethodGet, "/v1/notifications?limit=2&page=2", "alice", nil))
	require.Len(t, page2.Notifications, 1)
	require.False(t, page2.HasMore)

	count := decode[map[string]int64](t, h.do(http.MethodGet, "/v1/notifications/unread-count", "alice", nil))
	require.Equal(t, int64(3), count["count"])

	first := decode[map[string]any](t, h.do(http.MethodPost, "/v1/notifications/n1/read", "alice", nil))
	require.Equal(t, true, first["updated"])
	second := decode[map[string]any](t, h.do(http.MethodPost, "/v1/notifications/n1/read", "alice", nil))
	require.Equal(t, false, second["updated"])

	// Not the recipient.
	require.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/v1/notifications/n4/read", "alice", nil).Code)

	all := decode[map[string]any](t, h.do(http.MethodPost, "/v1/notifications/read-all", "alice", nil))
	require.EqualValues(t, 2, all["updated"])

	count = decode[map[string]int64](t, h.do(http.MethodGet, "/v1/notifications/unread-count", "alice", nil))
	require.Zero(t, count["count"])
	count = decode[map[string]int64](t, h.do(http.MethodGet, "/v1/notifications/unread-count", "bob", nil))
	require.Equal(t, int64(1), count["count"])
}
