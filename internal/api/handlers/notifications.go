package handlers

import (
	"net/http"

	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/store"
	"github.com/chucklechain/server/pkg/types"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/gin-gonic/gin"
)

// NotificationStore is the durable surface behind the notification endpoints.
type NotificationStore interface {
	store.Users
	store.Notifications
}

type NotificationsHandler struct {
	store NotificationStore
}

func NewNotificationsHandler(st NotificationStore) *NotificationsHandler {
	return &NotificationsHandler{store: st}
}

type NotificationListResponse struct {
	Notifications []wire.NewNotificationPayload `json:"notifications"`
	Total         int64                         `json:"total"`
	Page          int                           `json:"page"`
	Limit         int                           `json:"limit"`
	HasMore       bool                          `json:"hasMore"`
}

func (h *NotificationsHandler) ListNotifications(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()
	page := types.NormalizePage(queryInt(c, "limit", 0), queryInt(c, "page", 0))

	items, total, err := h.store.ListNotifications(ctx, userID, page)
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}

	senderIDs := make([]string, 0, len(items))
	for _, n := range items {
		senderIDs = append(senderIDs, n.SenderID)
	}
	senders, err := h.store.GetUsers(ctx, senderIDs)
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}

	out := make([]wire.NewNotificationPayload, 0, len(items))
	for _, n := range items {
		sender, ok := senders[n.SenderID]
		if !ok {
			sender.ID = n.SenderID
		}
		out = append(out, realtime.NotificationPayload(n, sender))
	}

	c.JSON(http.StatusOK, NotificationListResponse{
		Notifications: out,
		Total:         total,
		Page:          page.Page,
		Limit:         page.Limit,
		HasMore:       int64(page.Offset()+len(items)) < total,
	})
}

func (h *NotificationsHandler) UnreadCount(c *gin.Context) {
	count, err := h.store.CountUnreadNotifications(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "count unread notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	changed, err := h.store.MarkNotificationRead(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, err, "mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": changed})
}

func (h *NotificationsHandler) MarkAllRead(c *gin.Context) {
	n, err := h.store.MarkAllNotificationsRead(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}
