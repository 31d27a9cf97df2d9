package domain

import "time"

// Booking is the set of tickets created by one booking call.
type Booking struct {
	ConfirmationCode string   `json:"confirmation_code"`
	FlightID         int64    `json:"flight_id"`
	FareClassID      int64    `json:"fare_class_id"`
	Tickets          []Ticket `json:"tickets"`
}

func NewBooking(tickets []Ticket) *Booking {
	b := &Booking{Tickets: tickets}
	if len(tickets) > 0 {
		b.ConfirmationCode = tickets[0].ConfirmationCode
		b.FlightID = tickets[0].FlightID
		b.FareClassID = tickets[0].FareClassID
	}
	return b
}

// TotalCents sums the fares of tickets in the given status.
func (b *Booking) TotalCents(status TicketStatus) int64 {
	var total int64
	for _, t := range b.Tickets {
		if t.Status == status {
			total += t.FareCents
		}
	}
	return total
}

func (b *Booking) Count(status TicketStatus) int {
	n := 0
	for _, t := range b.Tickets {
		if t.Status == status {
			n++
		}
	}
	return n
}

type PaymentOrderStatus string

const (
	PaymentOrderPending   PaymentOrderStatus = "PENDING"
	PaymentOrderConfirmed PaymentOrderStatus = "CONFIRMED"
	PaymentOrderFailed    PaymentOrderStatus = "FAILED"
)

// PaymentOrder maps a gateway order id back to the booking it pays for.
type PaymentOrder struct {
	GatewayOrderID   string             `json:"gateway_order_id" db:"gateway_order_id"`
	ConfirmationCode string             `json:"confirmation_code" db:"confirmation_code"`
	AmountCents      int64              `json:"amount_cents" db:"amount_cents"`
	Status           PaymentOrderStatus `json:"status" db:"status"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}
