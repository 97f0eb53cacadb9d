package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/models"
)

var quietPaths = map[string]struct{}{
	"/api/healthz": {},
	"/api/metrics": {},
}

func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			if _, quiet := quietPaths[c.Request.URL.Path]; quiet {
				event = log.Debug()
			} else {
				event = log.Info()
			}
		}

		if userVal, ok := c.Get(ContextUser); ok {
			if user, ok := userVal.(models.UserRecord); ok {
				event = event.Str("user_id", user.ID).Str("role", string(user.Role()))
			}
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", RequestIDFrom(c)).
			Msg("http request")
	}
}
