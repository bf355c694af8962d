package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"founderframe/internal/model"
	"founderframe/internal/session"
)

const userContextKey = "user"

// Identify resolves the caller's identity from the Authorization
// header. Requests without a token proceed anonymously; requests with a
// malformed or invalid token are rejected.
func Identify(source *session.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			c.Abort()
			return
		}

		user, err := source.FromToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFrom returns the authenticated user for this request, or nil.
func UserFrom(c *gin.Context) *model.User {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
