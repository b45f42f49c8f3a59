package handlers

import (
	"context"

	"github.com/chucklechain/server/pkg/wire"
)

// GetOnlineUsers answers the caller with the current online set.
func GetOnlineUsers(_ context.Context, deps Deps, _ AuthContext, _ struct{}) EventResult {
	online := deps.Presence().OnlineUsers()
	return NewEventResult(online, []EmitInstruction{
		emitToSelf(wire.EventOnlineUsers, online),
	})
}
