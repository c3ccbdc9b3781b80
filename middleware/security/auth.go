package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"LPChat/tools/errs"
	"LPChat/tools/security"
)

// context keys the API layer reads after the middleware has run.
const (
	CtxUserIDKey      = "lpUserID"
	CtxDisplayNameKey = "lpDisplayName"
)

// Middleware verifies the bearer token on REST routes and stashes the
// caller identity into the gin context. The websocket route does NOT use
// this: its credential rides inside the first frame.
func Middleware(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrAuthFailure.WithDetail("missing bearer token"))
			return
		}
		claims, err := security.Verify(opts, token)
		if err != nil || claims.UserID() == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrAuthFailure.WithDetail("token rejected"))
			return
		}
		c.Set(CtxUserIDKey, claims.UserID())
		c.Set(CtxDisplayNameKey, claims.DisplayName())
		c.Next()
	}
}

// UserID reads the authenticated caller id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

// DisplayName reads the authenticated caller display name.
func DisplayName(c *gin.Context) string {
	return c.GetString(CtxDisplayNameKey)
}
