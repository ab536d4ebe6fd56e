package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kimchiprasadyadav-beep/callharvey/pkg/logger"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// RequireAccessToken verifies the bearer token and puts the operator identity on the request.
// Role checks belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))

		claims, err := m.Verify(tok, TokenTypeAccess, m.now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := claims.Identity()
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Set(logger.GinKeyOperator, id.OperatorID)
		c.Next()
	}
}
