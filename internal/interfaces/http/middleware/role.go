package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/interfaces/http/dto"
)

// RequireRole lets the request through only when the token's role is one of roles.
// Must run after JWTAuthMiddleware.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return requireRole(func(r identity.Role) bool { return slices.Contains(roles, r) })
}

// RequireStaff admits admin, sales and driver users
func RequireStaff() gin.HandlerFunc {
	return requireRole(identity.Role.IsStaff)
}

func requireRole(allowed func(identity.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetJWTRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", c.GetString(RequestIDKey)))
			return
		}
		if !allowed(role) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Insufficient role", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
