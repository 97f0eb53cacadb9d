package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusbus/identity/internal/identifier"
	"campusbus/identity/internal/middleware"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/session"
)

type detectRequest struct {
	Identifier string `json:"identifier"`
}

type detectResponse struct {
	Role models.Role `json:"role"`
	Hint string      `json:"hint"`
}

// DetectRole backs the live role hint on the login form.
func (h HandlerSet) DetectRole(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := h.classifier.DetectRole(req.Identifier)
	c.JSON(http.StatusOK, detectResponse{Role: role, Hint: identifier.Hint(role)})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type userResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Role        models.Role       `json:"role"`
	Record      models.UserRecord `json:"profile"`
}

type loginResponse struct {
	Token         string       `json:"token"`
	SessionID     string       `json:"sessionId"`
	ExpiresAt     time.Time    `json:"expiresAt"`
	DashboardPath string       `json:"dashboardPath"`
	User          userResponse `json:"user"`
}

func newUserResponse(user models.UserRecord) userResponse {
	public := user.Public()
	return userResponse{
		ID:          public.ID,
		Email:       public.Email,
		Name:        public.Name,
		DisplayName: session.DisplayName(public),
		Role:        public.Role(),
		Record:      public,
	}
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.auth.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		h.logger(c).Error().Err(err).Msg("authenticate failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication_unavailable"})
		return
	}
	if user == nil {
		counts, err := h.auth.RegisteredCounts(ctx)
		if err != nil {
			h.logger(c).Error().Err(err).Msg("count registered accounts failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials."})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":  counts.Message(),
			"counts": counts,
		})
		return
	}

	issued, err := h.sessions.Login(ctx, *user)
	if err != nil {
		h.logger(c).Error().Err(err).Str("user_id", user.ID).Msg("start session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:         issued.Token,
		SessionID:     issued.Snapshot.ID,
		ExpiresAt:     issued.Snapshot.ExpiresAt,
		DashboardPath: session.DashboardPath(user.Role()),
		User:          newUserResponse(*user),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	snapshot, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), snapshot.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	snapshot, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          newUserResponse(snapshot.User),
		"isLoggedIn":    snapshot.IsLoggedIn,
		"loggedInAt":    snapshot.LoggedInAt,
		"expiresAt":     snapshot.ExpiresAt,
		"dashboardPath": session.DashboardPath(snapshot.User.Role()),
	})
}
