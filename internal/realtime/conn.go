// Package realtime implements presence tracking, live delivery, read-state
// reconciliation and notification fan-out on top of a transport-agnostic
// connection handle.
package realtime

import (
	"fmt"
)

// Conn is one live client connection. Implementations wrap a transport
// socket; the core never touches transport types.
type Conn interface {
	// ID uniquely identifies the connection for the process lifetime.
	ID() string
	// Emit pushes one event to the client.
	Emit(event string, payload any) error
	// Close terminates the connection from the server side.
	Close()
}

// safeEmit pushes to conn, converting a panic from a broken transport into
// an error so a single bad connection cannot abort a caller's loop.
func safeEmit(conn Conn, event string, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emit %s panicked: %v", event, r)
		}
	}()
	return conn.Emit(event, payload)
}
