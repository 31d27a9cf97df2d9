package kafka

import (
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCanceled  = "booking_canceled"
	EventBookingConfirmed = "booking_confirmed"
	EventRefundRequested  = "refund_requested"
	EventTicketExpired    = "ticket_expired"
)

// BookingEvent is published for every change to a booking's tickets. The confirmation
// code is used as the message key so events of one booking stay ordered.
type BookingEvent struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	ConfirmationCode string    `json:"confirmation_code"`
	FlightID         int64     `json:"flight_id"`
	FareClassID      int64     `json:"fare_class_id"`
	TicketIDs        []int64   `json:"ticket_ids"`
	SeatNumbers      []string  `json:"seat_numbers"`
	AmountCents      int64     `json:"amount_cents"`
	Status           string    `json:"status,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, tickets []domain.Ticket, at time.Time) BookingEvent {
	event := BookingEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		TicketIDs:   lo.Map(tickets, func(t domain.Ticket, _ int) int64 { return t.ID }),
		SeatNumbers: lo.Map(tickets, func(t domain.Ticket, _ int) string { return t.SeatNumber }),
		AmountCents: lo.SumBy(tickets, func(t domain.Ticket) int64 { return t.FareCents }),
		OccurredAt:  at,
	}
	if len(tickets) > 0 {
		event.ConfirmationCode = tickets[0].ConfirmationCode
		event.FlightID = tickets[0].FlightID
		event.FareClassID = tickets[0].FareClassID
		event.Status = string(tickets[0].Status)
	}
	return event
}

// PaymentRequest asks the payment gateway to open an order for a booking.
type PaymentRequest struct {
	OrderID          string    `json:"order_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	AmountCents      int64     `json:"amount_cents"`
	RequestedAt      time.Time `json:"requested_at"`
}

// PaymentCallback is the gateway's verdict on an order.
type PaymentCallback struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}
