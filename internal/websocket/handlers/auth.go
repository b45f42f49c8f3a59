package handlers

// AuthContext carries the authenticated socket identity into handler
// functions. It holds no transport types.
type AuthContext struct {
	userID   string
	socketID string
}

// NewAuthContext constructs an AuthContext for a single socket event.
func NewAuthContext(userID, socketID string) AuthContext {
	return AuthContext{userID: userID, socketID: socketID}
}

// UserID returns the authenticated user id.
func (a AuthContext) UserID() string {
	return a.userID
}

// SocketID returns the caller socket id.
func (a AuthContext) SocketID() string {
	return a.socketID
}
