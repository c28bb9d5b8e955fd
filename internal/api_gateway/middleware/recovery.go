package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 in the gateway's error envelope.
// The stack is logged with the trace id and, once authenticated, the caller's account.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			attrs := []any{
				"error", r,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"method", c.Request.Method,
				"correlation_id", GetCorrelationID(c),
			}
			if principal, ok := GetPrincipal(c); ok {
				attrs = append(attrs, "account_id", principal.AccountID.String())
			}
			logger.Error("Panic recovered", attrs...)

			abortWith(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		}()

		c.Next()
	}
}
