package handlers

import (
	"context"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/pkg/wire"
)

// MessagesRead handles the client's "I have this conversation open" signal.
// The reader is always the authenticated socket user; a different userId in
// the payload is logged and ignored. On success the caller is told to
// refresh its unread badge.
func MessagesRead(ctx context.Context, deps Deps, auth AuthContext, req wire.MessagesReadPayload) EventResult {
	if req.ConversationID == "" {
		logger.Debugf("messagesRead without conversationId from %s", auth.UserID())
		return NewEventResult(nil, nil)
	}
	if req.UserID != "" && req.UserID != auth.UserID() {
		logger.Warnf("messagesRead: payload userId %s does not match socket user %s; using socket user",
			req.UserID, auth.UserID())
	}

	res, err := deps.Reads().MarkConversationRead(ctx, req.ConversationID, auth.UserID())
	if err != nil {
		logger.Warnf("messagesRead %s by %s: %v", req.ConversationID, auth.UserID(), err)
		return NewEventResult(nil, nil)
	}

	return NewEventResult(map[string]int{"updated": len(res.Flipped)}, []EmitInstruction{
		emitToSelf(wire.EventUpdateUnreadCount, wire.UpdateUnreadCountPayload{}),
	})
}
