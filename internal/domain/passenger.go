package domain

import (
	"net/mail"
	"strings"
	"time"
)

type Passenger struct {
	ID        int64     `json:"id" db:"id"`
	CitizenID string    `json:"citizen_id" db:"citizen_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PassengerInfo is the passenger data supplied with a booking request.
type PassengerInfo struct {
	CitizenID string  `json:"citizen_id"`
	FullName  string  `json:"full_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// Normalize trims whitespace and drops empty contact fields.
func (p PassengerInfo) Normalize() PassengerInfo {
	p.CitizenID = strings.TrimSpace(p.CitizenID)
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = trimOptional(p.Email)
	p.Phone = trimOptional(p.Phone)
	return p
}

func (p PassengerInfo) Validate() error {
	if p.CitizenID == "" {
		return &PassengerValidationError{Field: "citizen_id", Reason: "is required"}
	}
	if p.FullName == "" {
		return &PassengerValidationError{CitizenID: p.CitizenID, Field: "full_name", Reason: "is required"}
	}
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return &PassengerValidationError{CitizenID: p.CitizenID, Field: "email", Reason: "is not a valid address"}
		}
	}
	return nil
}

// ContactChanged reports whether info carries contact fields that differ from the stored record.
func (p Passenger) ContactChanged(info PassengerInfo) bool {
	return changed(p.Email, info.Email) || changed(p.Phone, info.Phone)
}

func changed(current, next *string) bool {
	if next == nil {
		return false
	}
	return current == nil || *current != *next
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
