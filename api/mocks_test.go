package api

import (
	"context"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/service/booking"
	"github.com/Domenick1991/seatbooking/internal/service/flights"
	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Book(ctx context.Context, input booking.BookInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, code string) (*domain.Booking, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelTicket(ctx context.Context, ticketID int64, scope booking.CancelScope) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, code string, scope booking.CancelScope) (*domain.Booking, error) {
	args := m.Called(ctx, code, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) StartPayment(ctx context.Context, code string) (*domain.PaymentOrder, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentOrder), args.Error(1)
}

func (m *MockPaymentUseCase) ConfirmPayment(ctx context.Context, code, gatewayOrderID string) (*payment.Reconciliation, error) {
	args := m.Called(ctx, code, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Reconciliation), args.Error(1)
}

func (m *MockPaymentUseCase) FailPayment(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockPaymentUseCase) HandleCallback(ctx context.Context, cb payment.Callback) (*payment.Reconciliation, error) {
	args := m.Called(ctx, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Reconciliation), args.Error(1)
}

type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetDeparture(ctx context.Context, flightID int64) (time.Time, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockFlightUseCase) GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error) {
	args := m.Called(ctx, flightID, fareClassID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FareClass), args.Error(1)
}

func (m *MockFlightUseCase) Availability(ctx context.Context, flightID int64) (*flights.Availability, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flights.Availability), args.Error(1)
}
