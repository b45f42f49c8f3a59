package websocket

import (
	"errors"
	"sync/atomic"

	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

var errSocketClosed = errors.New("socket closed")

// socketConn is the realtime.Conn for one Socket.IO socket.
type socketConn struct {
	id     string
	client *socket.Socket
	closed atomic.Bool
}

func newSocketConn(client *socket.Socket) *socketConn {
	return &socketConn{id: string(client.Id()), client: client}
}

func (c *socketConn) ID() string { return c.id }

func (c *socketConn) Emit(event string, payload any) error {
	if c.closed.Load() {
		return errSocketClosed
	}
	c.client.Emit(event, payload)
	return nil
}

func (c *socketConn) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.client.Disconnect(true)
}

// markClosed records a client-side disconnect so later emits are dropped.
func (c *socketConn) markClosed() {
	c.closed.Store(true)
}
