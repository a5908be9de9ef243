package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tessera/internal/errors"
	"tessera/internal/middleware"
	"tessera/internal/models"
)

// Reservations handlers

// CreateReservation - POST /api/reservations
// Create a seat hold (draft reservation)
func (h *Handlers) CreateReservation(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.Identity(c)
	reservation, unavailable, err := h.services.Reservations.CreateHold(c.Request.Context(), caller, &req)
	if err != nil {
		if errors.Is(err, apperrors.ErrSeatUnavailable) {
			c.JSON(http.StatusConflict, models.CreateReservationResponse{
				Message:          "Some seats are already reserved",
				UnavailableSeats: unavailable,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateReservationResponse{
		Message:     "Draft of reservation created successfully",
		Reservation: reservation,
	})
}

// ListReservations - GET /api/reservations?page=
// Paginated global reservation list, admin only
func (h *Handlers) ListReservations(c *gin.Context) {
	caller := middleware.Identity(c)
	response, err := h.services.Reservations.ListAll(c.Request.Context(), caller, pageParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListUserReservations - GET /api/reservations/user/:userId?page=
// Paginated reservation list for one user, owner or admin
func (h *Handlers) ListUserReservations(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	caller := middleware.Identity(c)
	response, err := h.services.Reservations.ListForUser(c.Request.Context(), caller, userID, pageParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetReservation - GET /api/reservations/:id
func (h *Handlers) GetReservation(c *gin.Context) {
	caller := middleware.Identity(c)
	reservation, err := h.services.Reservations.GetByID(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// CancelReservation - PATCH /api/reservations/:id/cancel
// Explicit cancellation of a pending reservation
func (h *Handlers) CancelReservation(c *gin.Context) {
	caller := middleware.Identity(c)
	if err := h.services.Reservations.Cancel(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reservation cancelled"})
}

// DeleteReservation - DELETE /api/reservations/:id
// Removal of a paid or unpaid reservation, owner or admin
func (h *Handlers) DeleteReservation(c *gin.Context) {
	caller := middleware.Identity(c)
	if err := h.services.Reservations.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reservation deleted successfully"})
}

// CreateCheckoutSession - POST /api/reservations/:id/checkout
// Open a payment session for a draft reservation
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	caller := middleware.Identity(c)
	response, err := h.services.Reservations.Checkout(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
