package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/stretchr/testify/mock"
)

type MockFlightCatalog struct {
	mock.Mock
}

func (m *MockFlightCatalog) GetDeparture(ctx context.Context, flightID int64) (time.Time, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockFlightCatalog) GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error) {
	args := m.Called(ctx, flightID, fareClassID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FareClass), args.Error(1)
}

type MockSeatPool struct {
	mock.Mock
}

func (m *MockSeatPool) Reserve(ctx context.Context, key domain.PoolKey, count int) error {
	args := m.Called(ctx, key, count)
	return args.Error(0)
}

func (m *MockSeatPool) Release(ctx context.Context, key domain.PoolKey, count int, reason inventory.ReleaseReason) error {
	args := m.Called(ctx, key, count, reason)
	return args.Error(0)
}

func (m *MockSeatPool) PeekFare(ctx context.Context, key domain.PoolKey) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Resolve(ctx context.Context, info domain.PassengerInfo) (*domain.Passenger, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Passenger), args.Error(1)
}

func (m *MockDirectory) UpdateContact(ctx context.Context, citizenID string, email, phone *string) (*domain.Passenger, error) {
	args := m.Called(ctx, citizenID, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Passenger), args.Error(1)
}

type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) CreateHeld(ctx context.Context, tickets []*domain.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByConfirmationCode(ctx context.Context, code string) ([]domain.Ticket, error) {
	args := m.Called(ctx, code)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) TakenSeats(ctx context.Context, flightID int64, seats []string) ([]string, error) {
	args := m.Called(ctx, flightID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTicketRepository) OccupiedSeats(ctx context.Context, flightID int64) ([]string, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTicketRepository) Transition(ctx context.Context, id int64, from, to domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	args := m.Called(ctx, id, from, to, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListExpiredHolds(ctx context.Context, filter repository.ExpiredHoldsFilter) ([]domain.Ticket, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

// passthroughTx runs fn without a transaction.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockSeatLocker struct {
	mock.Mock
}

func (m *MockSeatLocker) AcquireSeatLock(ctx context.Context, flightID int64, seat string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, seat, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatLocker) ReleaseSeatLock(ctx context.Context, flightID int64, seat string) error {
	args := m.Called(ctx, flightID, seat)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}
