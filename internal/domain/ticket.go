package domain

import "time"

type TicketStatus string

const (
	TicketStatusHeld     TicketStatus = "HELD"
	TicketStatusPaid     TicketStatus = "PAID"
	TicketStatusCanceled TicketStatus = "CANCELED"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusHeld: {TicketStatusPaid, TicketStatusCanceled},
	TicketStatusPaid: {TicketStatusCanceled},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusHeld, TicketStatusPaid, TicketStatusCanceled:
		return true
	}
	return false
}

type Ticket struct {
	ID                int64        `json:"id" db:"id"`
	FlightID          int64        `json:"flight_id" db:"flight_id"`
	FareClassID       int64        `json:"fare_class_id" db:"fare_class_id"`
	PassengerID       int64        `json:"passenger_id" db:"passenger_id"`
	BookingCustomerID *int64       `json:"booking_customer_id,omitempty" db:"booking_customer_id"`
	SeatNumber        string       `json:"seat_number" db:"seat_number"`
	FareCents         int64        `json:"fare_cents" db:"fare_cents"`
	ConfirmationCode  string       `json:"confirmation_code" db:"confirmation_code"`
	Status            TicketStatus `json:"status" db:"status"`
	PaymentTime       *time.Time   `json:"payment_time,omitempty" db:"payment_time"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	DeletedAt         *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (t *Ticket) Guest() bool {
	return t.BookingCustomerID == nil
}

func (t *Ticket) Pool() PoolKey {
	return PoolKey{FlightID: t.FlightID, FareClassID: t.FareClassID}
}

// Pay moves a held ticket to PAID.
func (t *Ticket) Pay(now time.Time) error {
	switch t.Status {
	case TicketStatusHeld:
	case TicketStatusPaid:
		return ErrAlreadyPaid
	default:
		return ErrInvalidTransition
	}
	t.Status = TicketStatusPaid
	t.PaymentTime = &now
	return nil
}

// Cancel soft-deletes the ticket. The returned flag is true when the seat it occupied
// must go back to the pool, which only holds for unpaid tickets.
func (t *Ticket) Cancel(now time.Time) (bool, error) {
	if t.Status == TicketStatusCanceled {
		return false, ErrAlreadyCanceled
	}
	if !t.Status.CanTransitionTo(TicketStatusCanceled) {
		return false, ErrInvalidTransition
	}
	release := t.Status == TicketStatusHeld
	t.Status = TicketStatusCanceled
	t.DeletedAt = &now
	return release, nil
}

// Apply performs the transition from the ticket's current status to next.
func (t *Ticket) Apply(next TicketStatus, now time.Time) error {
	switch next {
	case TicketStatusPaid:
		return t.Pay(now)
	case TicketStatusCanceled:
		_, err := t.Cancel(now)
		return err
	}
	return ErrInvalidTransition
}
