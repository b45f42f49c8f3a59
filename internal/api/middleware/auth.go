package middleware

import (
	"net/http"
	"strings"

	"github.com/chucklechain/server/pkg/types"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userID"
	// TokenCookie is the cookie web clients carry their session token in.
	TokenCookie = "token"
)

// TokenVerifier resolves a bearer credential to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthMiddleware accepts "Authorization: Bearer <jwt>" or the token cookie.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errMsg := requestToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: errMsg})
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func requestToken(c *gin.Context) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", "invalid authorization header format"
		}
		return parts[1], ""
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, ""
	}
	return "", "missing authorization header"
}

// GetUserID extracts the authenticated user id from the gin context.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}
