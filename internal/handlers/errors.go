package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"campusbus/identity/internal/repository"
	"campusbus/identity/internal/service"
)

// respondError writes err as {"error": kind, "message": ...} with a status
// chosen from its sentinel.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	kind := service.ErrorKind(err)
	status := http.StatusInternalServerError
	message := "internal_error"

	switch {
	case errors.Is(err, repository.ErrDuplicateIdentifier):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrReservedIdentifier),
		errors.Is(err, repository.ErrInvalidRecord):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrWeakPassword):
		status, message = http.StatusBadRequest, h.resets.Message(err)
	case errors.Is(err, service.ErrUnknownAccount), errors.Is(err, repository.ErrUserNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrReadOnlyCollection):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrBackupDisabled):
		status, message = http.StatusServiceUnavailable, err.Error()
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": kind, "fields": fields})
		return
	}

	if status == http.StatusInternalServerError {
		h.logger(c).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": kind, "message": message})
}
