package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"hashrecipe/internal/logging"
)

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := logging.Debug()
		if c.Writer.Status() >= 500 {
			ev = logging.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}
