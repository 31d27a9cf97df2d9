package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/Domenick1991/seatbooking/internal/metrics"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/Domenick1991/seatbooking/internal/service/passengers"
	"github.com/lithammer/shortuuid/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// maxAssignAttempts bounds retries when an auto-assigned seat is taken by a concurrent booking.
const maxAssignAttempts = 3

type BookingUseCase interface {
	Book(ctx context.Context, input BookInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, code string) (*domain.Booking, error)
	CancelTicket(ctx context.Context, ticketID int64, scope CancelScope) (*domain.Ticket, error)
	CancelBooking(ctx context.Context, code string, scope CancelScope) (*domain.Booking, error)
}

// FlightCatalog is the part of the flights service the engine validates against.
type FlightCatalog interface {
	GetDeparture(ctx context.Context, flightID int64) (time.Time, error)
	GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error)
}

type SeatLocker interface {
	AcquireSeatLock(ctx context.Context, flightID int64, seat string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID int64, seat string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookInput struct {
	FlightID          int64
	FareClassID       int64
	BookingCustomerID *int64
	Passengers        []domain.PassengerInfo
	// SeatNumbers is optional. When set it pairs one seat with each passenger by index.
	SeatNumbers []string
}

type BookingService struct {
	catalog    FlightCatalog
	pools      inventory.SeatPool
	passengers passengers.Directory
	tickets    repository.TicketRepository
	tx         repository.Transactor
	log        logrus.FieldLogger

	locker      SeatLocker
	seatLockTTL time.Duration
	producer    Producer
	eventsTopic string
	now         func() time.Time
	newCode     func() string
}

type BookingServiceOption func(*BookingService)

func WithSeatLocks(locker SeatLocker, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = locker
		s.seatLockTTL = ttl
	}
}

func WithEvents(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) { s.now = now }
}

func WithCodeGenerator(gen func() string) BookingServiceOption {
	return func(s *BookingService) { s.newCode = gen }
}

func NewBookingService(
	catalog FlightCatalog,
	pools inventory.SeatPool,
	directory passengers.Directory,
	tickets repository.TicketRepository,
	tx repository.Transactor,
	log logrus.FieldLogger,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		catalog:    catalog,
		pools:      pools,
		passengers: directory,
		tickets:    tickets,
		tx:         tx,
		log:        log,
		now:        time.Now,
		newCode:    shortuuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book holds one seat per passenger on the given fare class. Either every ticket is
// created or the pool is left as it was.
func (s *BookingService) Book(ctx context.Context, input BookInput) (*domain.Booking, error) {
	booking, err := s.book(ctx, input)
	metrics.BookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
	return booking, err
}

func (s *BookingService) book(ctx context.Context, input BookInput) (*domain.Booking, error) {
	infos, seats, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	departure, err := s.catalog.GetDeparture(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if !departure.After(s.now()) {
		return nil, domain.ErrBookingClosed
	}
	if _, err := s.catalog.GetFareClass(ctx, input.FlightID, input.FareClassID); err != nil {
		return nil, err
	}

	if len(seats) > 0 {
		unlock, err := s.lockSeats(ctx, input.FlightID, seats)
		if err != nil {
			return nil, err
		}
		defer unlock()

		taken, err := s.tickets.TakenSeats(ctx, input.FlightID, seats)
		if err != nil {
			return nil, fmt.Errorf("check seats: %w", err)
		}
		if len(taken) > 0 {
			return nil, &domain.SeatTakenError{SeatNumber: taken[0]}
		}
	}

	key := domain.PoolKey{FlightID: input.FlightID, FareClassID: input.FareClassID}
	count := len(infos)
	if err := s.pools.Reserve(ctx, key, count); err != nil {
		return nil, err
	}

	// past this point the seats are ours; a canceled caller must not abandon them
	ctx = context.WithoutCancel(ctx)
	tickets, err := s.issueTickets(ctx, input, infos, seats)
	if err != nil {
		if relErr := s.pools.Release(ctx, key, count, inventory.ReasonCompensation); relErr != nil {
			s.log.WithError(relErr).WithFields(logrus.Fields{
				"flight_id":     key.FlightID,
				"fare_class_id": key.FareClassID,
				"seats":         count,
			}).Error("failed to return seats after aborted booking")
		}
		return nil, err
	}

	booking := domain.NewBooking(tickets)
	s.publish(ctx, kafka.EventBookingCreated, tickets)
	s.log.WithFields(logrus.Fields{
		"confirmation_code": booking.ConfirmationCode,
		"flight_id":         booking.FlightID,
		"seats":             count,
	}).Info("booking held")
	return booking, nil
}

func validateInput(input BookInput) ([]domain.PassengerInfo, []string, error) {
	if len(input.Passengers) == 0 {
		return nil, nil, domain.ErrEmptyPassengerList
	}
	infos := make([]domain.PassengerInfo, len(input.Passengers))
	for i, p := range input.Passengers {
		infos[i] = p.Normalize()
		if err := infos[i].Validate(); err != nil {
			return nil, nil, err
		}
	}

	if len(input.SeatNumbers) == 0 {
		return infos, nil, nil
	}
	if len(input.SeatNumbers) != len(infos) {
		return nil, nil, domain.ErrMismatchedSeatCount
	}
	seats := lo.Map(input.SeatNumbers, func(seat string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(seat))
	})
	if lo.Contains(seats, "") {
		return nil, nil, domain.ErrInvalidSeatNumber
	}
	if dup := lo.FindDuplicates(seats); len(dup) > 0 {
		return nil, nil, &domain.SeatTakenError{SeatNumber: dup[0]}
	}
	return infos, seats, nil
}

// issueTickets resolves passengers, prices the seats once and writes the HELD tickets.
func (s *BookingService) issueTickets(ctx context.Context, input BookInput, infos []domain.PassengerInfo, seats []string) ([]domain.Ticket, error) {
	passengerIDs := make([]int64, len(infos))
	for i, info := range infos {
		p, err := s.passengers.Resolve(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("resolve passenger %s: %w", info.CitizenID, err)
		}
		passengerIDs[i] = p.ID
	}

	key := domain.PoolKey{FlightID: input.FlightID, FareClassID: input.FareClassID}
	fare, err := s.pools.PeekFare(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read fare: %w", err)
	}
	code := s.newCode()

	for attempt := 1; ; attempt++ {
		labels := seats
		if len(labels) == 0 {
			labels, err = s.assignSeats(ctx, input.FlightID, len(infos))
			if err != nil {
				return nil, err
			}
		}

		tickets := make([]*domain.Ticket, len(infos))
		for i := range infos {
			tickets[i] = &domain.Ticket{
				FlightID:          input.FlightID,
				FareClassID:       input.FareClassID,
				PassengerID:       passengerIDs[i],
				BookingCustomerID: input.BookingCustomerID,
				SeatNumber:        labels[i],
				FareCents:         fare,
				ConfirmationCode:  code,
			}
		}

		err = s.tickets.CreateHeld(ctx, tickets)
		if err == nil {
			return lo.Map(tickets, func(t *domain.Ticket, _ int) domain.Ticket { return *t }), nil
		}
		if len(seats) > 0 || !errors.Is(err, domain.ErrSeatAlreadyTaken) || attempt == maxAssignAttempts {
			return nil, err
		}
		s.log.WithError(err).WithField("attempt", attempt).Debug("assigned seat taken concurrently, retrying")
	}
}

// assignSeats picks the first free labels in row order: 1A..1F, 2A..2F and so on.
func (s *BookingService) assignSeats(ctx context.Context, flightID int64, count int) ([]string, error) {
	occupied, err := s.tickets.OccupiedSeats(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("load occupied seats: %w", err)
	}
	taken := lo.Associate(occupied, func(seat string) (string, struct{}) { return seat, struct{}{} })

	labels := make([]string, 0, count)
	for n := 0; len(labels) < count; n++ {
		label := SeatLabel(n)
		if _, ok := taken[label]; !ok {
			labels = append(labels, label)
		}
	}
	return labels, nil
}

const seatLetters = "ABCDEF"

// SeatLabel names the n-th seat of a cabin counting from zero.
func SeatLabel(n int) string {
	return fmt.Sprintf("%d%c", n/len(seatLetters)+1, seatLetters[n%len(seatLetters)])
}

// lockSeats takes short Redis locks on the requested seats. The database index stays the
// authority, so an unavailable lock store only costs the early rejection.
func (s *BookingService) lockSeats(ctx context.Context, flightID int64, seats []string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	acquired := make([]string, 0, len(seats))
	unlock := func() {
		releaseCtx := context.WithoutCancel(ctx)
		for _, seat := range acquired {
			if err := s.locker.ReleaseSeatLock(releaseCtx, flightID, seat); err != nil {
				s.log.WithError(err).WithField("seat_number", seat).Warn("failed to release seat lock")
			}
		}
	}

	for _, seat := range seats {
		ok, err := s.locker.AcquireSeatLock(ctx, flightID, seat, s.seatLockTTL)
		if err != nil {
			s.log.WithError(err).Warn("seat lock store unavailable, continuing without locks")
			return unlock, nil
		}
		if !ok {
			unlock()
			return nil, &domain.SeatTakenError{SeatNumber: seat}
		}
		acquired = append(acquired, seat)
	}
	return unlock, nil
}

func (s *BookingService) GetBooking(ctx context.Context, code string) (*domain.Booking, error) {
	tickets, err := s.tickets.ListByConfirmationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return domain.NewBooking(tickets), nil
}

// CancelScope limits which tickets a cancellation may touch.
type CancelScope int

const (
	// HeldOnly cancels unpaid holds and refuses paid tickets.
	HeldOnly CancelScope = iota
	// IncludePaid also cancels paid tickets and requests their refund. Administrative use only.
	IncludePaid
)

func (sc CancelScope) allows(status domain.TicketStatus) bool {
	return status != domain.TicketStatusPaid || sc == IncludePaid
}

// CancelTicket cancels one ticket. An unpaid ticket gives its seat back in the same
// transaction; a paid one, when scope allows it, keeps the pool untouched and triggers a
// refund request. Canceling a canceled ticket is a no-op.
func (s *BookingService) CancelTicket(ctx context.Context, ticketID int64, scope CancelScope) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, *ticket, scope)
}

// CancelBooking cancels every ticket of a booking. Out of scope paid tickets refuse the
// whole call before anything changes.
func (s *BookingService) CancelBooking(ctx context.Context, code string, scope CancelScope) (*domain.Booking, error) {
	booking, err := s.GetBooking(ctx, code)
	if err != nil {
		return nil, err
	}
	for _, t := range booking.Tickets {
		if !scope.allows(t.Status) {
			return nil, domain.ErrPaidTicketCancel
		}
	}

	var errs []error
	for _, t := range booking.Tickets {
		if _, err := s.cancel(ctx, t, scope); err != nil {
			errs = append(errs, fmt.Errorf("ticket %d: %w", t.ID, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s.GetBooking(ctx, code)
}

func (s *BookingService) cancel(ctx context.Context, ticket domain.Ticket, scope CancelScope) (*domain.Ticket, error) {
	// one re-read covers a payment landing between our read and the update
	for attempt := 0; attempt < 2; attempt++ {
		if ticket.Status == domain.TicketStatusCanceled {
			return &ticket, nil
		}
		if !scope.allows(ticket.Status) {
			return nil, domain.ErrPaidTicketCancel
		}

		var updated *domain.Ticket
		release := ticket.Status == domain.TicketStatusHeld
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			updated, err = s.tickets.Transition(ctx, ticket.ID, ticket.Status, domain.TicketStatusCanceled, s.now())
			if err != nil {
				return err
			}
			if release {
				return s.pools.Release(ctx, ticket.Pool(), 1, inventory.ReasonCancel)
			}
			return nil
		})

		switch {
		case err == nil:
			metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusCanceled), "applied").Inc()
			if release {
				s.publish(ctx, kafka.EventBookingCanceled, []domain.Ticket{*updated})
			} else {
				s.publish(ctx, kafka.EventRefundRequested, []domain.Ticket{*updated})
			}
			return updated, nil
		case errors.Is(err, domain.ErrAlreadyCanceled), errors.Is(err, domain.ErrStaleTransition):
			current, getErr := s.tickets.GetByID(ctx, ticket.ID)
			if getErr != nil {
				return nil, getErr
			}
			ticket = *current
		default:
			return nil, err
		}
	}
	if ticket.Status == domain.TicketStatusCanceled {
		return &ticket, nil
	}
	if !scope.allows(ticket.Status) {
		return nil, domain.ErrPaidTicketCancel
	}
	return nil, domain.ErrStaleTransition
}

func (s *BookingService) publish(ctx context.Context, eventType string, tickets []domain.Ticket) {
	if s.producer == nil || s.eventsTopic == "" || len(tickets) == 0 {
		return
	}
	event := kafka.NewBookingEvent(eventType, tickets, s.now())
	if err := s.producer.Publish(ctx, s.eventsTopic, event.ConfirmationCode, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":             eventType,
			"confirmation_code": event.ConfirmationCode,
		}).Warn("failed to publish booking event")
	}
}

func bookingOutcome(err error) string {
	var vErr *domain.PassengerValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientSeats):
		return "sold_out"
	case errors.Is(err, domain.ErrSeatAlreadyTaken):
		return "seat_taken"
	case errors.As(err, &vErr), errors.Is(err, domain.ErrEmptyPassengerList),
		errors.Is(err, domain.ErrMismatchedSeatCount), errors.Is(err, domain.ErrInvalidSeatNumber):
		return "invalid"
	}
	return "error"
}

var _ BookingUseCase = (*BookingService)(nil)
