package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BookingHandler struct {
	service booking.BookingUseCase
	log     logrus.FieldLogger
}

type createBookingRequest struct {
	FlightID    int64                  `json:"flight_id" binding:"required"`
	FareClassID int64                  `json:"fare_class_id" binding:"required"`
	Passengers  []domain.PassengerInfo `json:"passengers"`
	SeatNumbers []string               `json:"seat_numbers,omitempty"`
}

type bookingResponse struct {
	ConfirmationCode string          `json:"confirmation_code"`
	FlightID         int64           `json:"flight_id"`
	FareClassID      int64           `json:"fare_class_id"`
	Tickets          []domain.Ticket `json:"tickets"`
	HeldCents        int64           `json:"held_cents"`
	PaidCents        int64           `json:"paid_cents"`
}

func newBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ConfirmationCode: b.ConfirmationCode,
		FlightID:         b.FlightID,
		FareClassID:      b.FareClassID,
		Tickets:          b.Tickets,
		HeldCents:        b.TotalCents(domain.TicketStatusHeld),
		PaidCents:        b.TotalCents(domain.TicketStatusPaid),
	}
}

func NewBookingHandler(service booking.BookingUseCase, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.GET("/bookings/:code", h.get)
	router.DELETE("/bookings/:code", h.cancelBooking)
	router.DELETE("/tickets/:id", h.cancelTicket)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	input := booking.BookInput{
		FlightID:    req.FlightID,
		FareClassID: req.FareClassID,
		Passengers:  req.Passengers,
		SeatNumbers: req.SeatNumbers,
	}
	if id, ok := CustomerID(c); ok {
		input.BookingCustomerID = &id
	}

	b, err := h.service.Book(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) cancelBooking(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("code"), cancelScope(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) cancelTicket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid ticket id")
		return
	}
	ticket, err := h.service.CancelTicket(c.Request.Context(), id, cancelScope(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// cancelScope lets only administrators cancel paid tickets.
func cancelScope(c *gin.Context) booking.CancelScope {
	if IsAdmin(c) {
		return booking.IncludePaid
	}
	return booking.HeldOnly
}
