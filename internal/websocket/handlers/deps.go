package handlers

import (
	"context"

	"github.com/chucklechain/server/internal/realtime"
)

// ReadReconciler is the read-state entry point shared with the HTTP path.
type ReadReconciler interface {
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (realtime.ReadResult, error)
}

// OnlineLister answers "who is online".
type OnlineLister interface {
	OnlineUsers() []string
}

// Deps holds the narrow dependencies required by socket event handlers.
type Deps struct {
	reads    ReadReconciler
	presence OnlineLister
}

// NewDeps builds a dependency bundle for handler calls.
func NewDeps(reads ReadReconciler, presence OnlineLister) Deps {
	return Deps{reads: reads, presence: presence}
}

func (d Deps) Reads() ReadReconciler  { return d.reads }
func (d Deps) Presence() OnlineLister { return d.presence }
