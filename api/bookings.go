package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookingResponse struct {
	BookingID       string                `json:"booking_id"`
	CouponCode      string                `json:"coupon_code"`
	UserID          string                `json:"user_id"`
	TestID          string                `json:"test_id"`
	TestName        string                `json:"test_name"`
	LabName         string                `json:"lab_name"`
	LabAddress      string                `json:"lab_address"`
	Price           string                `json:"price"`
	AppointmentDate string                `json:"appointment_date"`
	AppointmentTime string                `json:"appointment_time"`
	BookingFor      string                `json:"booking_for"`
	Patient         domain.PatientDetails `json:"patient"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		BookingID:       b.BookingID,
		CouponCode:      b.CouponCode,
		UserID:          b.UserID,
		TestID:          b.TestID,
		TestName:        b.TestName,
		LabName:         b.LabName,
		LabAddress:      b.LabAddress,
		Price:           b.Price,
		AppointmentDate: b.AppointmentDate,
		AppointmentTime: b.AppointmentTime,
		BookingFor:      string(b.BookingFor),
		Patient:         b.Patient,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) list(c *gin.Context) {
	userID := c.Query("user_id")
	labName := c.Query("lab")

	var (
		bookings []domain.Booking
		err      error
	)
	switch {
	case userID != "":
		bookings, err = h.service.ListUserBookings(c.Request.Context(), userID)
	case labName != "":
		bookings, err = h.service.ListLabBookings(c.Request.Context(), labName)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id or lab query parameter is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) update(c *gin.Context) {
	var req booking.UpdateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(updated))
}
