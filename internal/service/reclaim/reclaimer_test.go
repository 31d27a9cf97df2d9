package reclaim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/Domenick1991/seatbooking/internal/repository/memory"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingProducer struct {
	mu     sync.Mutex
	events []kafka.BookingEvent
}

func (p *recordingProducer) Publish(_ context.Context, _, _ string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, value.(kafka.BookingEvent))
	return nil
}

type env struct {
	clock    *clock
	store    *memory.Store
	log      *logrus.Logger
	hook     *test.Hook
	producer *recordingProducer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	log, hook := test.NewNullLogger()
	return &env{
		clock:    c,
		store:    memory.NewStore(memory.WithClock(c.Now)),
		log:      log,
		hook:     hook,
		producer: &recordingProducer{},
	}
}

// flight adds a flight departing after the given delay with a single 10-seat class.
func (e *env) flight(departsIn time.Duration) domain.PoolKey {
	f, classes := e.store.AddFlight(domain.Flight{FromAirport: "SVO", ToAirport: "KZN", DepartureTime: e.clock.Now().Add(departsIn)},
		domain.FareClass{Name: "economy", TotalSeats: 10, RemainingSeats: 10, FareCents: 7000})
	return domain.PoolKey{FlightID: f.ID, FareClassID: classes[0].ID}
}

func (e *env) hold(t *testing.T, key domain.PoolKey, code string, seats ...string) []*domain.Ticket {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.SeatPools().Reserve(ctx, key, len(seats)))
	tickets := make([]*domain.Ticket, 0, len(seats))
	for i, seat := range seats {
		tickets = append(tickets, &domain.Ticket{
			FlightID: key.FlightID, FareClassID: key.FareClassID, PassengerID: int64(i + 1),
			SeatNumber: seat, FareCents: 7000, ConfirmationCode: code,
		})
	}
	require.NoError(t, e.store.Tickets().CreateHeld(ctx, tickets))
	return tickets
}

func (e *env) remaining(t *testing.T, key domain.PoolKey) int {
	t.Helper()
	class, err := e.store.SeatPools().Get(context.Background(), key)
	require.NoError(t, err)
	return class.RemainingSeats
}

func (e *env) status(t *testing.T, id int64) domain.TicketStatus {
	t.Helper()
	ticket, err := e.store.Tickets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket.Status
}

func (e *env) reclaimer(tickets repository.TicketRepository, cfg Config) *Reclaimer {
	if tickets == nil {
		tickets = e.store.Tickets()
	}
	return NewReclaimer(tickets, inventory.NewService(e.store.SeatPools(), e.log), e.store.Transactor(), cfg, e.log,
		WithEvents(e.producer, "booking-events"), WithClock(e.clock.Now))
}

func TestSweep_ReclaimsHoldsOnDepartingFlights(t *testing.T) {
	e := newEnv(t)
	soon := e.flight(3 * time.Hour)
	later := e.flight(72 * time.Hour)

	departing := e.hold(t, soon, "SOON", "1A", "1B")
	kept := e.hold(t, later, "LATER", "2A")
	assert.Equal(t, 8, e.remaining(t, soon))

	r := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour})
	report, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 2, Reclaimed: 2}, report)
	for _, ticket := range departing {
		assert.Equal(t, domain.TicketStatusCanceled, e.status(t, ticket.ID))
	}
	assert.Equal(t, domain.TicketStatusHeld, e.status(t, kept[0].ID))
	assert.Equal(t, 10, e.remaining(t, soon))
	assert.Equal(t, 9, e.remaining(t, later))

	require.Len(t, e.producer.events, 2)
	for _, event := range e.producer.events {
		assert.Equal(t, kafka.EventTicketExpired, event.Type)
		assert.Equal(t, "SOON", event.ConfirmationCode)
		assert.Equal(t, string(domain.TicketStatusCanceled), event.Status)
	}

	// the seats are free for new bookings again
	taken, err := e.store.Tickets().TakenSeats(context.Background(), soon.FlightID, []string{"1A", "1B"})
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestSweep_IsIdempotent(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	e.hold(t, key, "CODE", "1A")

	r := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour})
	_, err := r.Sweep(context.Background())
	require.NoError(t, err)

	report, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Equal(t, 10, e.remaining(t, key))
}

func TestSweep_SkipsPaidTickets(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	tickets := e.hold(t, key, "CODE", "1A", "1B")

	_, err := e.store.Tickets().Transition(context.Background(), tickets[0].ID, domain.TicketStatusHeld, domain.TicketStatusPaid, e.clock.Now())
	require.NoError(t, err)

	report, err := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour}).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Reclaimed)
	assert.Equal(t, domain.TicketStatusPaid, e.status(t, tickets[0].ID))
	assert.Equal(t, domain.TicketStatusCanceled, e.status(t, tickets[1].ID))
	assert.Equal(t, 9, e.remaining(t, key))
}

func TestSweep_MinHoldAgeProtectsFreshHolds(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	e.hold(t, key, "CODE", "1A")

	r := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour, MinHoldAge: 10 * time.Minute})
	report, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Reclaimed)

	e.clock.Advance(11 * time.Minute)
	report, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reclaimed)
}

func TestSweep_HoldTTLReclaimsDistantFlights(t *testing.T) {
	e := newEnv(t)
	key := e.flight(30 * 24 * time.Hour)
	e.hold(t, key, "CODE", "1A")

	r := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour, HoldTTL: 30 * time.Minute})
	report, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)

	e.clock.Advance(31 * time.Minute)
	report, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reclaimed)
	assert.Equal(t, 10, e.remaining(t, key))
}

func TestSweep_DrainsInBatches(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	e.hold(t, key, "CODE", "1A", "1B", "1C", "1D", "1E")

	report, err := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour, BatchSize: 2}).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, report.Reclaimed)
	assert.Equal(t, 10, e.remaining(t, key))
}

// racingTickets lets a payment land between the sweep's scan and its cancellation.
type racingTickets struct {
	repository.TicketRepository
	payFirst map[int64]bool
	now      func() time.Time
}

func (r racingTickets) Transition(ctx context.Context, id int64, from, to domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	if r.payFirst[id] && to == domain.TicketStatusCanceled {
		// the payment commits on its own, outside the sweep's transaction
		if _, err := r.TicketRepository.Transition(context.Background(), id, domain.TicketStatusHeld, domain.TicketStatusPaid, r.now()); err != nil {
			return nil, err
		}
	}
	return r.TicketRepository.Transition(ctx, id, from, to, at)
}

func TestSweep_PaymentWinsRace(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	tickets := e.hold(t, key, "CODE", "1A", "1B")

	racing := racingTickets{TicketRepository: e.store.Tickets(), payFirst: map[int64]bool{tickets[0].ID: true}, now: e.clock.Now}
	report, err := e.reclaimer(racing, Config{MaxHoldDuration: 24 * time.Hour}).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 2, Reclaimed: 1, Stale: 1}, report)
	assert.Equal(t, domain.TicketStatusPaid, e.status(t, tickets[0].ID))
	// only the canceled ticket's seat came back
	assert.Equal(t, 9, e.remaining(t, key))
	assert.Len(t, e.producer.events, 1)
}

type failingPools struct {
	inventory.SeatPool
}

func (failingPools) Release(context.Context, domain.PoolKey, int, inventory.ReleaseReason) error {
	return errors.New("pool unavailable")
}

func TestSweep_ReleaseFailureRollsBackTicket(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	tickets := e.hold(t, key, "CODE", "1A")

	r := NewReclaimer(e.store.Tickets(), failingPools{}, e.store.Transactor(), Config{MaxHoldDuration: 24 * time.Hour}, e.log, WithClock(e.clock.Now))
	report, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Failed: 1}, report)
	assert.Equal(t, domain.TicketStatusHeld, e.status(t, tickets[0].ID))
	assert.Equal(t, 9, e.remaining(t, key))
	require.NotNil(t, e.hook.LastEntry())
}

type brokenTickets struct {
	repository.TicketRepository
}

func (brokenTickets) ListExpiredHolds(context.Context, repository.ExpiredHoldsFilter) ([]domain.Ticket, error) {
	return nil, errors.New("connection reset")
}

// stuckTickets fails every cancellation of one ticket and counts the attempts.
type stuckTickets struct {
	repository.TicketRepository
	stuck    int64
	attempts *int
}

func (r stuckTickets) Transition(ctx context.Context, id int64, from, to domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	if id == r.stuck {
		*r.attempts++
		return nil, errors.New("deadlock detected")
	}
	return r.TicketRepository.Transition(ctx, id, from, to, at)
}

func TestSweep_FailedTicketWaitsForNextSweep(t *testing.T) {
	e := newEnv(t)
	key := e.flight(3 * time.Hour)
	held := e.hold(t, key, "SOON", "1A", "1B", "1C")

	attempts := 0
	r := e.reclaimer(stuckTickets{TicketRepository: e.store.Tickets(), stuck: held[0].ID, attempts: &attempts},
		Config{MaxHoldDuration: 24 * time.Hour, BatchSize: 2})
	report, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 3, Reclaimed: 2, Failed: 1}, report)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, domain.TicketStatusHeld, e.status(t, held[0].ID))
	assert.Equal(t, 9, e.remaining(t, key))

	_, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestSweep_ListError(t *testing.T) {
	e := newEnv(t)

	_, err := e.reclaimer(brokenTickets{e.store.Tickets()}, Config{}).Sweep(context.Background())

	assert.EqualError(t, err, "connection reset")
}

func TestRun_StopsOnCancel(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	e.hold(t, key, "CODE", "1A")

	r := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour, Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return e.remaining(t, key) == 10 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStartStop(t *testing.T) {
	e := newEnv(t)
	key := e.flight(time.Hour)
	e.hold(t, key, "CODE", "1A")

	r := e.reclaimer(nil, Config{MaxHoldDuration: 24 * time.Hour, Interval: 10 * time.Millisecond})
	r.Start()
	r.Start()

	require.Eventually(t, func() bool { return e.remaining(t, key) == 10 }, time.Second, 5*time.Millisecond)

	r.Stop()
	r.Stop()
}
