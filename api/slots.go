package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/availability"
	"github.com/rapidlab/labbooking/internal/service/booking"
)

// SlotHandler serves the two availability modes (full-day booked set and
// single-slot check) plus the eager lock endpoint clients call on selection.
type SlotHandler struct {
	availability availability.AvailabilityUseCase
	bookings     booking.BookingUseCase
}

func NewSlotHandler(avail availability.AvailabilityUseCase, bookings booking.BookingUseCase) *SlotHandler {
	return &SlotHandler{availability: avail, bookings: bookings}
}

func (h *SlotHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.bookedSlots)
	router.GET("/check", h.check)
	router.POST("/lock", h.lock)
}

func (h *SlotHandler) bookedSlots(c *gin.Context) {
	lab := c.Query("lab")
	date := c.Query("date")

	booked, err := h.availability.BookedSlots(c.Request.Context(), lab, date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booked_slots": booked})
}

func (h *SlotHandler) check(c *gin.Context) {
	lab := c.Query("lab")
	date := c.Query("date")
	slot := c.Query("time")

	available, err := h.availability.IsSlotAvailable(c.Request.Context(), lab, date, slot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

func (h *SlotHandler) lock(c *gin.Context) {
	var req booking.LockSlotInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.bookings.LockSlot(c.Request.Context(), req); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) || errors.Is(err, domain.ErrSlotUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
