package rbac

import (
	"net/http"

	"access-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAccessPoint enforces the door binding: routes that record events at
// a door need a token issued for a concrete access point. App stations roam
// and must not reach routes guarded by this.
func RequireAccessPoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.AccessPointID(c.Request.Context()) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access_point_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - admin bypasses all checks
// - door binding is enforced via RequireAccessPoint (use it in the chain)
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		// admin bypasses all
		if IsAdmin(role) {
			c.Next()
			return
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
