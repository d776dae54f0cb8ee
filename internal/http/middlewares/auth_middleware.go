package middlewares

import (
	"net/http"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	authn auth.Authenticator
}

func NewAuthMiddleware(authn auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authn: authn}
}

// RequireAuth rejects requests without a valid bearer token and stashes the
// claims on both the gin context and the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := m.authn.ExtractToken(c.Request)
		if err != nil {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.authn.VerifyToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		c.Set(CtxClaims, claims)
		c.Request = c.Request.WithContext(actorctx.WithClaims(c.Request.Context(), claims))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

// Optional helpers so handlers don’t need to know the magic keys.

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok || claims.UserID() == "" {
		return "", false
	}
	return claims.UserID(), true
}
