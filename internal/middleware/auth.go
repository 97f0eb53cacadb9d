package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/models"
	"campusbus/identity/internal/session"
)

const (
	ContextSession = "current_session"
	ContextUser    = "current_user"
)

type SessionResolver interface {
	Authenticate(ctx context.Context, token string) (models.SessionSnapshot, error)
}

// Auth requires a bearer token naming a live session and exposes the
// session and its user on the gin context.
func Auth(sessions SessionResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		snapshot, err := sessions.Authenticate(c.Request.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				LoggerFrom(c, log).Error().Err(err).Msg("session lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_session"})
			return
		}

		c.Set(ContextSession, snapshot)
		c.Set(ContextUser, snapshot.User)

		c.Next()
	}
}

// CurrentSession returns the session stored by Auth.
func CurrentSession(c *gin.Context) (models.SessionSnapshot, bool) {
	val, exists := c.Get(ContextSession)
	if !exists {
		return models.SessionSnapshot{}, false
	}
	snapshot, ok := val.(models.SessionSnapshot)
	return snapshot, ok
}
