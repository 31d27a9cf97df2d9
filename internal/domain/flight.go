package domain

import "time"

type Flight struct {
	ID            int64     `json:"id" db:"id"`
	FromAirport   string    `json:"from_airport" db:"from_airport"`
	ToAirport     string    `json:"to_airport" db:"to_airport"`
	DepartureTime time.Time `json:"departure_time" db:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time" db:"arrival_time"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// FareClass is a priced seating category of one flight together with its seat pool counters.
type FareClass struct {
	ID             int64     `json:"id" db:"id"`
	FlightID       int64     `json:"flight_id" db:"flight_id"`
	Name           string    `json:"name" db:"name"`
	TotalSeats     int       `json:"total_seats" db:"total_seats"`
	RemainingSeats int       `json:"remaining_seats" db:"remaining_seats"`
	FareCents      int64     `json:"fare_cents" db:"fare_cents"`
	Retired        bool      `json:"retired" db:"retired"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (c FareClass) SoldOut() bool {
	return c.RemainingSeats <= 0
}

// PoolKey identifies one seat pool.
type PoolKey struct {
	FlightID    int64
	FareClassID int64
}
