package rbac

import (
	"net/http"

	"headset-bridge/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireScope allows the request only if the caller's token grants scope.
//
// Rules:
//   - headset:control implies headset:read
//   - a missing identity is 401, a missing scope is 403
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.ClientID(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "client identity required"})
			return
		}
		if !Grants(auth.Scopes(c.Request.Context()), scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
