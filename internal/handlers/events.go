package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tessera/internal/middleware"
	"tessera/internal/models"
)

// Events handlers

// CreateEvent - POST /api/events
// Admin only; seeds the seat inventory from the chosen hall template
func (h *Handlers) CreateEvent(c *gin.Context) {
	caller := middleware.Identity(c)
	if !caller.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden access"})
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Events.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListEvents - GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.services.Events.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// GetEvent - GET /api/events/:id
// Event detail with the seat map, served through the cache
func (h *Handlers) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	detail, err := h.services.Events.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// SearchEvents - GET /api/events/search?q=
func (h *Handlers) SearchEvents(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	events, err := h.services.Events.Search(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}
