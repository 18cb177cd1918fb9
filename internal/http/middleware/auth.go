package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/threadcast/threadcast/internal/session"
)

const userIDContextKey = "auth_user_id"

// Auth validates the bearer session token and stores the user id on the
// request context.
type Auth struct {
	Sessions *session.Manager
}

// Require aborts unauthenticated requests.
func (a *Auth) Require(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, err := a.Sessions.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

// GetUserID returns the authenticated user id set by Require.
func GetUserID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	// The OAuth redirect round-trip cannot carry headers; the session rides
	// in a cookie for those two endpoints.
	if cookie, err := c.Cookie("session"); err == nil {
		return cookie
	}
	return ""
}
