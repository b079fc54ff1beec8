package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireStationToken verifies a station token and injects identity into the
// request context. It does not perform RBAC checks; those belong to
// internal/rbac.
func RequireStationToken(m *Manager) gin.HandlerFunc {
	return requireToken(m, TokenTypeStation)
}

// RequirePanelToken verifies a hardware panel token. Panel routes are the
// only routes that accept it.
func RequirePanelToken(m *Manager) gin.HandlerFunc {
	return requireToken(m, TokenTypePanel)
}

func requireToken(m *Manager, expected TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, expected, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.StationID, claims.AccessPointID, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("station_id", claims.StationID)
		c.Set("access_point_id", claims.AccessPointID)
		c.Set("role", claims.Role)

		c.Next()
	}
}
