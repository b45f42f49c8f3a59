package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/gin-gonic/gin"
)

// RemotePresence reports presence recorded by other server processes.
type RemotePresence interface {
	Lookup(ctx context.Context, userID string) (online bool, lastSeen time.Time, err error)
}

type PresenceHandler struct {
	presence PresenceReader
	remote   RemotePresence
}

// NewPresenceHandler answers from the local sessions first. remote may be
// nil; when set it covers users connected to another process.
func NewPresenceHandler(presence PresenceReader, remote RemotePresence) *PresenceHandler {
	return &PresenceHandler{presence: presence, remote: remote}
}

type UserPresenceResponse struct {
	UserID   string  `json:"userId"`
	Online   bool    `json:"online"`
	LastSeen *string `json:"lastSeen,omitempty"`
}

func (h *PresenceHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.presence.OnlineUsers()})
}

func (h *PresenceHandler) UserPresence(c *gin.Context) {
	userID := c.Param("id")
	resp := UserPresenceResponse{UserID: userID, Online: h.presence.IsOnline(userID)}
	if resp.Online {
		c.JSON(http.StatusOK, resp)
		return
	}

	at, seen := h.presence.LastSeen(userID)
	if h.remote != nil {
		online, remoteAt, err := h.remote.Lookup(c.Request.Context(), userID)
		switch {
		case err != nil:
			logger.Warnf("Remote presence lookup for %s: %v", userID, err)
		case online:
			resp.Online = true
		case !remoteAt.IsZero() && (!seen || remoteAt.After(at)):
			at, seen = remoteAt, true
		}
	}
	if !resp.Online && seen {
		ts := wire.Timestamp(at)
		resp.LastSeen = &ts
	}
	c.JSON(http.StatusOK, resp)
}
