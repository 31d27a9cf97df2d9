package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientSeats    = errors.New("insufficient seats")
	ErrSeatAlreadyTaken     = errors.New("seat already taken")
	ErrMismatchedSeatCount  = errors.New("seat numbers count does not match passengers count")
	ErrEmptyPassengerList   = errors.New("passenger list is empty")
	ErrPassengerValidation  = errors.New("invalid passenger data")
	ErrFlightNotFound       = errors.New("flight not found")
	ErrFareClassNotFound    = errors.New("fare class not found")
	ErrBookingClosed        = errors.New("flight is closed for booking")
	ErrAlreadyPaid          = errors.New("ticket already paid")
	ErrAlreadyCanceled      = errors.New("ticket already canceled")
	ErrStaleTransition      = errors.New("ticket status changed concurrently")
	ErrInvalidTransition    = errors.New("invalid ticket status transition")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrPassengerNotFound    = errors.New("passenger not found")
	ErrPassengerExists      = errors.New("passenger already exists")
	ErrPaymentOrderNotFound = errors.New("payment order not found")
	ErrPaymentOrderMismatch = errors.New("payment order does not belong to booking")
	ErrNothingToPay         = errors.New("booking has no held tickets")
	ErrPaidTicketCancel     = errors.New("paid tickets can only be canceled by an administrator")
	ErrInvalidSeatNumber    = errors.New("seat number is empty")
)

// SeatTakenError names the seat that could not be assigned.
type SeatTakenError struct {
	SeatNumber string
}

func (e *SeatTakenError) Error() string {
	return fmt.Sprintf("seat %s already taken", e.SeatNumber)
}

func (e *SeatTakenError) Is(target error) bool {
	return target == ErrSeatAlreadyTaken
}

type PassengerValidationError struct {
	CitizenID string
	Field     string
	Reason    string
}

func (e *PassengerValidationError) Error() string {
	if e.CitizenID == "" {
		return fmt.Sprintf("passenger %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("passenger %s: %s %s", e.CitizenID, e.Field, e.Reason)
}

func (e *PassengerValidationError) Is(target error) bool {
	return target == ErrPassengerValidation
}
