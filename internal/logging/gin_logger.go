package logging

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

// GinLogger logs one structured entry per request. Credential query parameters
// are masked and the level follows the response status.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := WithFields(requestFields(c, status, time.Since(start)))
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			entry = entry.WithField("errors", errs)
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}

func requestFields(c *gin.Context, status int, latency time.Duration) Fields {
	path := c.Request.URL.Path
	if q := maskQuery(c.Request.URL.RawQuery); q != "" {
		path += "?" + q
	}
	fields := Fields{
		"status":  status,
		"method":  c.Request.Method,
		"path":    path,
		"latency": latency.Round(time.Millisecond).String(),
		"client":  c.ClientIP(),
	}
	if name := c.Param("name"); name != "" {
		fields["provider"] = name
	}
	return fields
}

// GinRecovery turns a handler panic into a 500 and logs the stack.
func GinRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		WithFields(Fields{
			"panic":  recovered,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"stack":  string(debug.Stack()),
		}).Error("handler panicked")

		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
