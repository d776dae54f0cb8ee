package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsMethods are the methods the route table actually serves.
var corsMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

const corsAllowMethods = "GET,POST,PATCH,DELETE"

// CORSMiddleware reflects listed origins. Bearer tokens travel in the
// Authorization header, so credentials mode is never advertised.
// Preflights from unknown origins or for unserved methods get a 403.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		_, known := allowed[origin]

		if origin != "" {
			ctx.Header("Vary", "Origin")
		}

		if known {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Expose-Headers", "X-Request-Id,Retry-After")
		}

		// only cross-origin preflights are answered here
		if ctx.Request.Method != http.MethodOptions || origin == "" {
			ctx.Next()
			return
		}

		reqMethod := strings.ToUpper(ctx.GetHeader("Access-Control-Request-Method"))
		if _, served := corsMethods[reqMethod]; !known || !served {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
		ctx.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Request-Id")
		ctx.Header("Access-Control-Max-Age", "600")
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
