package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AccessKey is the gin context key a handler chain sets to say which route
// group served the request. Unset means open.
const AccessKey = "wlboot.access"

const (
	AccessOpen    = "open"
	AccessGuarded = "guarded"
	AccessDenied  = "denied"
)

func requestAccess(c *gin.Context) string {
	if v := c.GetString(AccessKey); v != "" {
		return v
	}
	return AccessOpen
}

func routePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}

// RequestLogger logs one line per status API request. Open probes log at
// debug; guarded views at info.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		access := requestAccess(c)
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400 || access == AccessDenied:
			event = logger.Warn()
		case access == AccessGuarded:
			event = logger.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", routePath(c)).
			Str("access", access).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("status api request")
	}
}

// RequestMetricsMiddleware counts requests by route template, never the raw
// URL, so unmatched paths collapse into one series.
func RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(c.Request.Method, routePath(c), requestAccess(c), c.Writer.Status(), time.Since(start))
	}
}
