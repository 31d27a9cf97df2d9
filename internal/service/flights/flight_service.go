package flights

import (
	"context"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
)

// FlightUseCase is the flight catalog the booking engine and the REST API read from.
type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetDeparture(ctx context.Context, flightID int64) (time.Time, error)
	GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error)
	Availability(ctx context.Context, flightID int64) (*Availability, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

// Availability is a flight together with the live counters of its open fare classes.
type Availability struct {
	Flight  domain.Flight      `json:"flight"`
	Classes []domain.FareClass `json:"classes"`
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache) *FlightService {
	return &FlightService{repo: repo, cache: cache}
}

// List serves the schedule from the cache when possible. Seat counters are not part of
// the cached payload, so staleness never affects availability.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) GetDeparture(ctx context.Context, flightID int64) (time.Time, error) {
	return s.repo.GetDeparture(ctx, flightID)
}

// GetFareClass returns the fare class only while it is open for sale.
func (s *FlightService) GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error) {
	class, err := s.repo.GetFareClass(ctx, flightID, fareClassID)
	if err != nil {
		return nil, err
	}
	if class.Retired {
		return nil, domain.ErrFareClassNotFound
	}
	return class, nil
}

func (s *FlightService) Availability(ctx context.Context, flightID int64) (*Availability, error) {
	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListFareClasses(ctx, flightID)
	if err != nil {
		return nil, err
	}
	return &Availability{Flight: *flight, Classes: classes}, nil
}

var _ FlightUseCase = (*FlightService)(nil)
