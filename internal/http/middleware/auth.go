// README: Firebase bearer-token auth middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nile/internal/infra"
)

const (
	ctxCallerUID   = "caller_uid"
	ctxCallerRole  = "caller_role"
	ctxCallerToken = "caller_token"
)

// Auth rejects requests without a valid Firebase ID token. A nil verifier disables
// auth (local development); handlers then see an empty caller uid.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxCallerUID, token.UID)
		if role := token.Role(); role != "" {
			c.Set(ctxCallerRole, role)
		}
		c.Set(ctxCallerToken, raw)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxCallerUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxCallerRole)
}

// CallerToken is the verified raw token, forwarded to the itinerary gateway.
func CallerToken(c *gin.Context) string {
	return c.GetString(ctxCallerToken)
}
