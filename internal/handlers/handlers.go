package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tessera/internal/errors"
	"tessera/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps the lifecycle error taxonomy to stable HTTP codes.
// Anything outside the taxonomy is a generic 500: infrastructure detail
// never leaks to the caller.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrEmptySeatSelection),
		errors.Is(err, apperrors.ErrTooManySeats),
		errors.Is(err, apperrors.ErrEventExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSeatUnavailable),
		errors.Is(err, apperrors.ErrHoldAlreadyInProgress),
		errors.Is(err, apperrors.ErrReservationPaid),
		errors.Is(err, apperrors.ErrDuplicateReservation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrSeatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden access"})
	default:
		slog.Error("Request failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
