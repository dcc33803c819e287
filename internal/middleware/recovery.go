package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a logged 500 with the standard error
// body. gin's own stack dump is discarded in favour of a structured entry.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		log.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", RequestIDFrom(c)).
			Bytes("stack", debug.Stack()).
			Msg("panic recovered")
		abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
	})
}
