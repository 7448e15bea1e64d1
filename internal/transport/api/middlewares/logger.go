package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger пишет в лог каждый запрос. Ошибки контекста попадают в поле errors, 5xx логируются с уровнем error.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := l.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   status,
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
			"size":     c.Writer.Size(),
		})
		if userID, ok := c.Get(CurrentUserIDKey); ok {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500: //nolint:mnd
			entry.Error("request failed")
		case status >= 400: //nolint:mnd
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	}
}
