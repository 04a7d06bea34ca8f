package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/shared/server/respond"
	"docscan-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 response and an error log line.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"user_id":    UserIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			})
			if !c.Writer.Written() {
				respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
			}
			c.Abort()
		}()
		c.Next()
	}
}
