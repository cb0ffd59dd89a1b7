package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"topic-catalog/internal/domain"
)

// statusFor maps a service error onto a status code and a client-safe message.
func statusFor(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, domain.ErrDuplicatePath):
		return http.StatusBadRequest, "Topic path already in use"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, "Incorrect password"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrTopicNotFound):
		return http.StatusNotFound, "Topic not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Only the owner can modify this topic"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).
			WithField("method", c.Request.Method).
			WithField("path", c.FullPath()).
			Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
