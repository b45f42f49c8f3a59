package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chucklechain/server/internal/api/middleware"
	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/store"
	"github.com/chucklechain/server/pkg/types"
	"github.com/gin-gonic/gin"
)

// Deliverer makes one best-effort live push to a user.
type Deliverer interface {
	Deliver(userID, event string, payload any) realtime.Outcome
}

// ReadReconciler is the shared mark-conversation-read entry point.
type ReadReconciler interface {
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (realtime.ReadResult, error)
}

// Notifier accepts notification requests after the primary write commits.
type Notifier interface {
	NotifyAsync(req realtime.NotifyRequest)
}

// PresenceReader answers presence queries from the live session registry.
type PresenceReader interface {
	OnlineUsers() []string
	IsOnline(userID string) bool
	LastSeen(userID string) (time.Time, bool)
}

// Clock bundles the time and id sources used for new records.
type Clock struct {
	Now   func() time.Time
	NewID func() string
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Clock) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return types.NewID()
}

func currentUser(c *gin.Context) string {
	userID, _ := middleware.GetUserID(c)
	return userID
}

// respondError maps domain errors to status codes. Unexpected errors are
// logged and reported as a generic message.
func respondError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, realtime.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "not found"})
	case errors.Is(err, realtime.ErrNotParticipant):
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: err.Error()})
	default:
		logger.Errorf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to " + op})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// parseBefore accepts an RFC 3339 timestamp or unix milliseconds. Zero means
// no bound.
func parseBefore(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
