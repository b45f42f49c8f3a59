package websocket

import (
	"context"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/websocket/handlers"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

// emitHandlerResult pushes a handler's self-directed events back to the
// calling socket.
func (s *SocketIOServer) emitHandlerResult(callerSocketID string, result handlers.EventResult) {
	sd := s.getSocketData(callerSocketID)
	if sd.Conn == nil {
		return
	}
	for _, e := range result.Emits() {
		if err := sd.Conn.Emit(e.Event(), e.Payload()); err != nil {
			logger.Debugf("Emit %s to socket %s failed: %v", e.Event(), callerSocketID, err)
		}
	}
}

// onTypedEvent decodes the first argument into Req, runs handler with the
// socket's identity, acks when the client asked for it and emits the
// result.
func onTypedEvent[Req any](
	s *SocketIOServer,
	client *socket.Socket,
	event string,
	handler func(context.Context, handlers.Deps, handlers.AuthContext, Req) handlers.EventResult,
) {
	client.On(event, func(data ...any) {
		socketID := string(client.Id())
		sd := s.getSocketData(socketID)
		if sd.UserID == "" {
			return
		}
		raw, ack := getFirstAnyWithAck(data)

		var req Req
		if raw != nil {
			if err := decodeAny(raw, &req); err != nil {
				logger.Warnf("%s decode error from %s: %v (type=%T)", event, sd.UserID, err, raw)
				return
			}
		}

		result := handler(context.Background(), s.deps, handlers.NewAuthContext(sd.UserID, socketID), req)
		if ack != nil {
			ack(result.Ack())
		}
		s.emitHandlerResult(socketID, result)
	})
}
