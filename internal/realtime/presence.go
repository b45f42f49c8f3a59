package realtime

import (
	"context"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/pkg/wire"
)

// PresenceMirror publishes presence changes to observers outside this
// process. It never feeds back into routing.
type PresenceMirror interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string, at time.Time) error
}

// Broadcaster announces presence changes to every other live session and
// answers "who is online" from the Session Store.
type Broadcaster struct {
	sessions *SessionStore
}

// NewBroadcaster creates a Broadcaster over sessions.
func NewBroadcaster(sessions *SessionStore) *Broadcaster {
	return &Broadcaster{sessions: sessions}
}

// Connected broadcasts userConnected for userID. It returns how many
// recipients the event reached.
func (b *Broadcaster) Connected(userID string) int {
	return b.broadcast(userID, wire.EventUserConnected, wire.UserConnectedPayload{UserID: userID})
}

// Disconnected broadcasts userDisconnected for userID with its lastSeen.
func (b *Broadcaster) Disconnected(userID string, at time.Time) int {
	return b.broadcast(userID, wire.EventUserDisconnected, wire.UserDisconnectedPayload{
		UserID:    userID,
		Timestamp: wire.Timestamp(at),
	})
}

// OnlineUsers returns the ids currently online.
func (b *Broadcaster) OnlineUsers() []string {
	return b.sessions.OnlineUsers()
}

// broadcast is fire-and-forget: a failing recipient is logged and skipped.
func (b *Broadcaster) broadcast(subject, event string, payload any) int {
	delivered := 0
	for _, sess := range b.sessions.Others(subject) {
		if err := safeEmit(sess.Conn, event, payload); err != nil {
			logger.Warnf("Presence %s for %s not delivered to %s (conn %s): %v",
				event, subject, sess.UserID, sess.Conn.ID(), err)
			continue
		}
		delivered++
	}
	logger.Tracef("Presence %s for %s reached %d sessions", event, subject, delivered)
	return delivered
}
