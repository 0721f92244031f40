package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"casebridge/internal/auth"
)

// Context keys set for authenticated requests.
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// AuthMiddleware validates the Authorization header and binds the
// authenticated identity to the request context.
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(UserRoleKey, identity.Role)
		c.Next()
	}
}
