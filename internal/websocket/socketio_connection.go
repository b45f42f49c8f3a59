package websocket

import (
	"context"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/websocket/handlers"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

func (s *SocketIOServer) handleConnection(client *socket.Socket) {
	socketID := string(client.Id())
	logger.Debugf("Socket.IO connection attempt (socket ID: %s)", socketID)

	handshake := client.Handshake()

	var auth handlers.SocketAuthPayload
	if len(handshake.Auth) > 0 {
		if err := decodeAny(handshake.Auth, &auth); err != nil {
			logger.Debugf("Socket.IO auth object not decodable (socket %s): %v", socketID, err)
		}
	}
	// Never log the token itself.
	token := handlers.ExtractToken(auth, headersFromHandshake(handshake.Headers))

	conn := newSocketConn(client)
	userID, err := s.gateway.Connect(context.Background(), token, conn)
	if err != nil {
		return
	}

	s.socketData.Store(socketID, &SocketData{UserID: userID, Conn: conn})
	s.registerClientHandlers(client, socketID)
}
