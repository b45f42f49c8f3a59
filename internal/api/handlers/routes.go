package handlers

import "github.com/gin-gonic/gin"

// Set bundles every HTTP handler the server exposes.
type Set struct {
	Health        *HealthHandler
	Conversations *ConversationsHandler
	Notifications *NotificationsHandler
	Activity      *ActivityHandler
	Presence      *PresenceHandler
}

// RegisterRoutes mounts the public and authenticated routes on router.
func RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc, h Set) {
	router.GET("/", h.Health.Root)
	router.GET("/healthz", h.Health.Healthz)

	protected := router.Group("/v1")
	protected.Use(auth)
	{
		// Conversations
		protected.GET("/conversations", h.Conversations.ListConversations)
		protected.POST("/conversations", h.Conversations.CreateConversation)
		protected.GET("/conversations/unread-count", h.Conversations.UnreadCount)
		protected.GET("/conversations/:id/messages", h.Conversations.ListMessages)
		protected.POST("/conversations/:id/messages", h.Conversations.SendMessage)
		protected.POST("/conversations/:id/read", h.Conversations.MarkRead)
		protected.DELETE("/messages/:id", h.Conversations.DeleteMessage)

		// Notifications
		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		protected.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		protected.POST("/notifications/:id/read", h.Notifications.MarkRead)

		// Activity
		protected.POST("/posts", h.Activity.CreatePost)
		protected.POST("/posts/:id/like", h.Activity.LikePost)
		protected.POST("/posts/:id/comments", h.Activity.CommentOnPost)
		protected.POST("/comments/:id/like", h.Activity.LikeComment)
		protected.POST("/users/:id/follow", h.Activity.Follow)

		// Presence
		protected.GET("/presence/online", h.Presence.OnlineUsers)
		protected.GET("/users/:id/presence", h.Presence.UserPresence)
	}
}
