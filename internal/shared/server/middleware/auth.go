package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"complai-backend/internal/shared/auth"
	"complai-backend/internal/shared/server/respond"
)

const (
	orgIDKey     = "orgId"
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// Auth validates JWTs minted by the IdP bridge, or dev org headers, and stores
// identity in context.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Sub)
			org := claims.Org
			if org == "" {
				org = claims.Sub
			}
			c.Set(orgIDKey, org)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			c.Next()
			return
		}

		// Header identity is only honored outside production.
		if env != "production" {
			orgID := strings.TrimSpace(c.GetHeader("X-Org-Id"))
			if orgID != "" {
				c.Set(orgIDKey, orgID)
				userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
				if userID == "" {
					userID = orgID
				}
				c.Set(userIDKey, userID)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
}

// OrgIDFromContext returns the org ID stored by Auth middleware.
func OrgIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(orgIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserIDFromContext returns the user ID stored by Auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
