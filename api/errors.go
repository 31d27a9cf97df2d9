package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason"`
	SeatNumber string `json:"seat_number,omitempty"`
}

type errorMapping struct {
	target error
	status int
	reason string
}

// order matters: the first matching target wins
var errorMappings = []errorMapping{
	{domain.ErrInsufficientSeats, http.StatusConflict, "sold_out"},
	{domain.ErrSeatAlreadyTaken, http.StatusConflict, "seat_taken"},
	{domain.ErrPassengerValidation, http.StatusBadRequest, "invalid_passenger"},
	{domain.ErrEmptyPassengerList, http.StatusBadRequest, "empty_passenger_list"},
	{domain.ErrMismatchedSeatCount, http.StatusBadRequest, "seat_count_mismatch"},
	{domain.ErrInvalidSeatNumber, http.StatusBadRequest, "invalid_seat_number"},
	{domain.ErrPaidTicketCancel, http.StatusForbidden, "paid_ticket"},
	{domain.ErrBookingClosed, http.StatusConflict, "booking_closed"},
	{domain.ErrFlightNotFound, http.StatusNotFound, "flight_not_found"},
	{domain.ErrFareClassNotFound, http.StatusNotFound, "fare_class_not_found"},
	{domain.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{domain.ErrTicketNotFound, http.StatusNotFound, "ticket_not_found"},
	{domain.ErrPaymentOrderNotFound, http.StatusNotFound, "payment_order_not_found"},
	{domain.ErrPaymentOrderMismatch, http.StatusBadRequest, "payment_order_mismatch"},
	{payment.ErrUnknownStatus, http.StatusBadRequest, "unknown_payment_status"},
	{domain.ErrNothingToPay, http.StatusConflict, "nothing_to_pay"},
	{domain.ErrStaleTransition, http.StatusConflict, "concurrent_update"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
}

func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		resp := errorResponse{Error: err.Error(), Reason: m.reason}
		var taken *domain.SeatTakenError
		if errors.As(err, &taken) {
			resp.SeatNumber = taken.SeatNumber
		}
		c.JSON(m.status, resp)
		return
	}

	log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Reason: "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Reason: "bad_request"})
}
