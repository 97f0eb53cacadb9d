package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusbus/identity/internal/models"
)

func (h HandlerSet) AdminUsersReport(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.users.Inspect(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	counts, err := h.auth.RegisteredCounts(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counts":      counts,
		"collections": report,
		"consistent":  report.Students.Consistent() && report.Staff.Consistent(),
		"generatedAt": time.Now().UTC(),
	})
}

func (h HandlerSet) AdminSeedUsers(c *gin.Context) {
	added, err := h.users.SeedIfEmpty(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger(c).Info().Int("added", added).Msg("seed requested")
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// AdminClearUsers empties the collections named by repeated ?role= query
// values, or both persisted collections when none are given.
func (h HandlerSet) AdminClearUsers(c *gin.Context) {
	var roles []models.Role
	for _, value := range c.QueryArray("role") {
		role, err := models.ParseRole(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		roles = append(roles, role)
	}

	if err := h.users.Clear(c.Request.Context(), roles...); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger(c).Warn().Interface("roles", roles).Msg("user collections cleared")
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminBackupUsers(c *gin.Context) {
	location, err := h.backups.Upload(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"location": location})
}
