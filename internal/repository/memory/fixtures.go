package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"gopkg.in/yaml.v3"
)

type fixtureFile struct {
	Flights []fixtureFlight `yaml:"flights"`
}

type fixtureFlight struct {
	ID            int64          `yaml:"id"`
	FromAirport   string         `yaml:"from_airport"`
	ToAirport     string         `yaml:"to_airport"`
	DepartureTime time.Time      `yaml:"departure_time"`
	ArrivalTime   time.Time      `yaml:"arrival_time"`
	Classes       []fixtureClass `yaml:"classes"`
}

type fixtureClass struct {
	ID             int64  `yaml:"id"`
	Name           string `yaml:"name"`
	TotalSeats     int    `yaml:"total_seats"`
	RemainingSeats *int   `yaml:"remaining_seats"`
	FareCents      int64  `yaml:"fare_cents"`
	Retired        bool   `yaml:"retired"`
}

// LoadFixtures seeds flights and fare classes from a YAML file. A class without
// remaining_seats starts full.
func (s *Store) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}

	for _, f := range file.Flights {
		classes := make([]domain.FareClass, 0, len(f.Classes))
		for _, c := range f.Classes {
			remaining := c.TotalSeats
			if c.RemainingSeats != nil {
				remaining = *c.RemainingSeats
			}
			if remaining < 0 || remaining > c.TotalSeats {
				return fmt.Errorf("fare class %q of flight %d: remaining_seats %d out of range", c.Name, f.ID, remaining)
			}
			classes = append(classes, domain.FareClass{
				ID:             c.ID,
				Name:           c.Name,
				TotalSeats:     c.TotalSeats,
				RemainingSeats: remaining,
				FareCents:      c.FareCents,
				Retired:        c.Retired,
			})
		}
		s.AddFlight(domain.Flight{
			ID:            f.ID,
			FromAirport:   f.FromAirport,
			ToAirport:     f.ToAirport,
			DepartureTime: f.DepartureTime,
			ArrivalTime:   f.ArrivalTime,
		}, classes...)
	}
	return nil
}
