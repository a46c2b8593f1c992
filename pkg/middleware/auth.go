package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harveywai/thermopanel/pkg/auth"
)

const (
	contextUsernameKey = "username"
	contextUserRole    = "userRole"
)

// SessionMiddleware reads the session cookie, when present and valid, and
// attaches the user to the Gin context. It never rejects a request: routes
// that need a role use RoleMiddleware.
func SessionMiddleware(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(auth.SessionCookie)
		if err == nil && tokenString != "" {
			if claims, err := signer.ValidateToken(tokenString); err == nil {
				c.Set(contextUsernameKey, claims.Username)
				c.Set(contextUserRole, claims.Role)
			}
		}

		c.Next()
	}
}

// Username returns the session user, if any.
func Username(c *gin.Context) string {
	return c.GetString(contextUsernameKey)
}

// Role returns the session role, if any.
func Role(c *gin.Context) string {
	return c.GetString(contextUserRole)
}

// RoleMiddleware ensures that the session user has the required role.
// action completes the rejection message "Unauthorized: Only <role> can <action>."
func RoleMiddleware(requiredRole, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(Role(c), requiredRole) {
			Reject(c, http.StatusForbidden, "Unauthorized: Only "+requiredRole+" can "+action+".")
			return
		}

		c.Next()
	}
}

// Reject aborts the request with the panel's failure envelope.
func Reject(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
