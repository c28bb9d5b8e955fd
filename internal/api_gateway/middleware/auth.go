package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emotion-market/point-ledger/internal/platform/auth"
)

const PrincipalKey = "principal"

// TokenVerifier resolves a raw bearer token to a caller.
type TokenVerifier interface {
	Verify(raw string) (auth.Principal, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller under PrincipalKey.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		principal, err := verifier.Verify(strings.TrimSpace(header[len("bearer "):]))
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequireAdmin lets only admin principals through. It must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		if !principal.Admin {
			abortWith(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func abortWith(c *gin.Context, status int, code, message string) {
	response := gin.H{"error": gin.H{"code": code, "message": message}}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
