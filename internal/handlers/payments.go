package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Payments handlers. The payment gateway redirects here after checkout;
// these callbacks drive the confirm/decline transitions.

// NotifyPaymentCompleted - GET /api/payments/success
func (h *Handlers) NotifyPaymentCompleted(c *gin.Context) {
	reservationID := c.Query("reservationId")
	if reservationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservationId is required"})
		return
	}

	reservation, err := h.services.Reservations.ConfirmPaid(c.Request.Context(), reservationID)
	if err != nil {
		respondError(c, err)
		return
	}

	slog.Info("Payment confirmed", "reservation_id", reservation.ID, "price", reservation.Price)
	c.JSON(http.StatusOK, reservation)
}

// NotifyPaymentFailed - GET /api/payments/fail
func (h *Handlers) NotifyPaymentFailed(c *gin.Context) {
	reservationID := c.Query("reservationId")
	if reservationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservationId is required"})
		return
	}

	if err := h.services.Reservations.DeclinePayment(c.Request.Context(), reservationID); err != nil {
		respondError(c, err)
		return
	}

	slog.Info("Payment declined, reservation released", "reservation_id", reservationID)
	c.JSON(http.StatusOK, gin.H{"message": "Reservation released"})
}
