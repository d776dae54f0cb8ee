package middlewares

import (
	"net/http"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRoles must run after RequireAuth. Missing claims are a 401,
// a role outside allowed is a 403.
func (m *AuthMiddleware) RequireRoles(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)

		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		if !auth.Authorize(claims, allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":      "forbidden",
					"message":   "Your role is not allowed to access this resource",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		c.Next()
	}
}
