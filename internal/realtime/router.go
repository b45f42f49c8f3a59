package realtime

import (
	"github.com/chucklechain/server/internal/logger"
)

// Outcome is the result of a single live delivery attempt.
type Outcome int

const (
	// Dropped means the target had no live connection (or the push failed).
	// The durable record is still the source of truth; this is not an error.
	Dropped Outcome = iota
	// Delivered means the payload was handed to the target's connection.
	Delivered
)

func (o Outcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "dropped"
}

// Router pushes events to a single user's live connection.
type Router struct {
	sessions *SessionStore
}

// NewRouter creates a Router over sessions.
func NewRouter(sessions *SessionStore) *Router {
	return &Router{sessions: sessions}
}

// Deliver makes one best-effort push of payload under event to userID.
// There is no queue and no retry.
func (r *Router) Deliver(userID, event string, payload any) Outcome {
	conn, ok := r.sessions.Lookup(userID)
	if !ok {
		logger.Tracef("Deliver %s to %s: dropped (offline)", event, userID)
		return Dropped
	}
	if err := safeEmit(conn, event, payload); err != nil {
		// The connection went away between lookup and push.
		logger.Debugf("Deliver %s to %s: dropped (conn %s): %v", event, userID, conn.ID(), err)
		return Dropped
	}
	logger.Tracef("Deliver %s to %s: delivered (conn %s)", event, userID, conn.ID())
	return Delivered
}
