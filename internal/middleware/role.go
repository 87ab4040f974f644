package middleware

import (
	"net/http"

	"charzing/internal/domain"
	"charzing/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only when the token role is one of
// the given roles.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		current := domain.UserRole(role.(string))
		for _, r := range roles {
			if current == r {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

// AdminOnly requires the admin role.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}

// StaffOnly admits technicians and admins, the roles that run diagnoses.
func StaffOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleTechnician, domain.RoleAdmin)
}
