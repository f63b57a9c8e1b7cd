package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by Middleware.
const (
	CtxUserID   = "auth_user_id"
	CtxUsername = "auth_username"
)

// BearerToken extracts the token from the Authorization header or, for
// WebSocket handshakes where custom headers are awkward, the token query
// parameter.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's identity in the gin context.
func Middleware(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Verify(BearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// UserFrom returns the authenticated user id and username from the context.
func UserFrom(c *gin.Context) (userID, username string) {
	return c.GetString(CtxUserID), c.GetString(CtxUsername)
}
