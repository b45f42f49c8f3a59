package websocket

import (
	"context"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/websocket/handlers"
	"github.com/chucklechain/server/pkg/wire"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

func (s *SocketIOServer) registerClientHandlers(client *socket.Socket, socketID string) {
	onTypedEvent[struct{}](s, client, wire.EventGetOnlineUsers, handlers.GetOnlineUsers)
	onTypedEvent[wire.MessagesReadPayload](s, client, wire.EventMessagesRead, handlers.MessagesRead)

	client.On("disconnect", func(data ...any) {
		sd := s.getSocketData(socketID)
		reason := ""
		if len(data) > 0 {
			if r, ok := data[0].(string); ok {
				reason = r
			}
		}
		logger.Tracef("Socket %s disconnect event (user %s, reason %s)", socketID, sd.UserID, reason)

		if sd.Conn != nil {
			sd.Conn.markClosed()
			s.gateway.Disconnect(context.Background(), sd.UserID, sd.Conn, reason)
		}
		s.socketData.Delete(socketID)
	})
}
