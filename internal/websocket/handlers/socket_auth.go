package handlers

import (
	"net/http"
	"strings"
)

// TokenCookie is the cookie web clients carry their session token in.
const TokenCookie = "token"

// SocketAuthPayload is the Socket.IO handshake auth object.
type SocketAuthPayload struct {
	Token string `json:"token"`
}

// ExtractToken picks the bearer credential for a handshake. The auth object
// wins, then an Authorization header, then the token cookie. An empty result
// means no credential was presented.
func ExtractToken(auth SocketAuthPayload, headers http.Header) string {
	if tok := strings.TrimSpace(auth.Token); tok != "" {
		return strings.TrimPrefix(tok, "Bearer ")
	}
	if headers == nil {
		return ""
	}
	if h := headers.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok && tok != "" {
			return strings.TrimSpace(tok)
		}
	}
	req := http.Request{Header: headers}
	if c, err := req.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
