package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusbus/identity/internal/service"
)

type forgotPasswordRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

const forgotPasswordMessage = "If an account matches, a reset link has been sent."

// ForgotPassword always answers 202 so the response does not reveal which
// identifiers exist. Outside production the raw token is echoed for local
// testing.
func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issued, err := h.resets.Issue(c.Request.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, service.ErrUnknownAccount) {
			h.logger(c).Info().Str("identifier", req.Identifier).Msg("reset requested for unknown account")
			c.JSON(http.StatusAccepted, gin.H{"message": forgotPasswordMessage})
			return
		}
		h.respondError(c, err)
		return
	}

	resp := gin.H{"message": forgotPasswordMessage}
	if !h.cfg.IsProduction() {
		resp["token"] = issued.Token
		resp["expiresAt"] = issued.ExpiresAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h HandlerSet) ValidateResetToken(c *gin.Context) {
	c.JSON(http.StatusOK, h.resets.Validate(c.Request.Context(), c.Query("token")))
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.resets.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
		switch {
		case errors.Is(result.Err, service.ErrTargetUserMissing):
			status = http.StatusNotFound
		case errors.Is(result.Err, service.ErrTokenExpired), errors.Is(result.Err, service.ErrTokenConsumed):
			status = http.StatusGone
		case service.ErrorKind(result.Err) == "unexpected":
			status = http.StatusInternalServerError
		}
	}

	c.JSON(status, gin.H{
		"success": result.Success,
		"message": result.Message,
		"error":   service.ErrorKind(result.Err),
	})
}
