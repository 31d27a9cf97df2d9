// Package memory keeps every repository in process memory. It backs the "memory" database
// driver for local runs and the booking property tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
)

type seatKey struct {
	flightID int64
	seat     string
}

// pool guards one seat counter. Reserve and Release on different pools never contend.
type pool struct {
	mu    sync.Mutex
	class domain.FareClass
}

type Store struct {
	mu          sync.RWMutex
	flights     map[int64]domain.Flight
	pools       map[domain.PoolKey]*pool
	tickets     map[int64]*domain.Ticket
	activeSeats map[seatKey]int64
	passengers  map[int64]*domain.Passenger
	byCitizen   map[string]int64
	orders      map[string]*domain.PaymentOrder

	nextFlightID    int64
	nextClassID     int64
	nextTicketID    int64
	nextPassengerID int64

	txMu sync.Mutex
	now  func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for created_at and updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		flights:     make(map[int64]domain.Flight),
		pools:       make(map[domain.PoolKey]*pool),
		tickets:     make(map[int64]*domain.Ticket),
		activeSeats: make(map[seatKey]int64),
		passengers:  make(map[int64]*domain.Passenger),
		byCitizen:   make(map[string]int64),
		orders:      make(map[string]*domain.PaymentOrder),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddFlight registers a flight with its fare classes. Zero ids are assigned by the store.
func (s *Store) AddFlight(f domain.Flight, classes ...domain.FareClass) (domain.Flight, []domain.FareClass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if f.ID == 0 {
		s.nextFlightID++
		f.ID = s.nextFlightID
	} else if f.ID > s.nextFlightID {
		s.nextFlightID = f.ID
	}
	f.CreatedAt, f.UpdatedAt = now, now
	s.flights[f.ID] = f

	added := make([]domain.FareClass, 0, len(classes))
	for _, c := range classes {
		if c.ID == 0 {
			s.nextClassID++
			c.ID = s.nextClassID
		} else if c.ID > s.nextClassID {
			s.nextClassID = c.ID
		}
		c.FlightID = f.ID
		c.CreatedAt, c.UpdatedAt = now, now
		s.pools[domain.PoolKey{FlightID: f.ID, FareClassID: c.ID}] = &pool{class: c}
		added = append(added, c)
	}
	return f, added
}

func (s *Store) Flights() repository.FlightRepository             { return flightRepo{s} }
func (s *Store) SeatPools() repository.SeatPoolRepository         { return seatPoolRepo{s} }
func (s *Store) Tickets() repository.TicketRepository             { return ticketRepo{s} }
func (s *Store) Passengers() repository.PassengerRepository       { return passengerRepo{s} }
func (s *Store) PaymentOrders() repository.PaymentOrderRepository { return paymentOrderRepo{s} }
func (s *Store) Transactor() repository.Transactor                { return transactor{s} }

type txKey struct{}

type txLog struct {
	undo []func()
}

// onRollback registers fn to run if the transaction bound to ctx fails. Outside a
// transaction the mutation is final and fn is dropped.
func onRollback(ctx context.Context, fn func()) {
	if log, ok := ctx.Value(txKey{}).(*txLog); ok {
		log.undo = append(log.undo, fn)
	}
}

// transactor serializes transactions and undoes their mutations on error. Readers outside
// a transaction may observe its intermediate state.
type transactor struct {
	s *Store
}

func (t transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txLog); ok {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	log := &txLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		for i := len(log.undo) - 1; i >= 0; i-- {
			log.undo[i]()
		}
		return err
	}
	return nil
}

type flightRepo struct {
	s *Store
}

func (r flightRepo) List(ctx context.Context) ([]domain.Flight, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	flights := make([]domain.Flight, 0, len(r.s.flights))
	for _, f := range r.s.flights {
		flights = append(flights, f)
	}
	sort.Slice(flights, func(i, j int) bool {
		if flights[i].DepartureTime.Equal(flights[j].DepartureTime) {
			return flights[i].ID < flights[j].ID
		}
		return flights[i].DepartureTime.Before(flights[j].DepartureTime)
	})
	return flights, nil
}

func (r flightRepo) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.flights[id]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	return &f, nil
}

func (r flightRepo) GetDeparture(ctx context.Context, flightID int64) (time.Time, error) {
	f, err := r.GetByID(ctx, flightID)
	if err != nil {
		return time.Time{}, err
	}
	return f.DepartureTime, nil
}

func (r flightRepo) GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error) {
	return r.s.SeatPools().Get(ctx, domain.PoolKey{FlightID: flightID, FareClassID: fareClassID})
}

func (r flightRepo) ListFareClasses(ctx context.Context, flightID int64) ([]domain.FareClass, error) {
	r.s.mu.RLock()
	pools := make([]*pool, 0)
	for key, p := range r.s.pools {
		if key.FlightID == flightID {
			pools = append(pools, p)
		}
	}
	r.s.mu.RUnlock()

	classes := make([]domain.FareClass, 0, len(pools))
	for _, p := range pools {
		p.mu.Lock()
		c := p.class
		p.mu.Unlock()
		if !c.Retired {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].FareCents > classes[j].FareCents })
	return classes, nil
}

var (
	_ repository.FlightRepository = flightRepo{}
	_ repository.Transactor       = transactor{}
)
