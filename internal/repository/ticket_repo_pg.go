package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/jmoiron/sqlx"
)

// ExpiredHoldsFilter selects HELD tickets for the expiry sweep. A ticket matches when it was
// created before CreatedBefore and either its flight departs before DepartureBefore or,
// when HeldBefore is set, it was created before HeldBefore.
type ExpiredHoldsFilter struct {
	DepartureBefore time.Time
	CreatedBefore   time.Time
	HeldBefore      *time.Time
	Limit           int
}

type TicketRepository interface {
	CreateHeld(ctx context.Context, tickets []*domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByConfirmationCode(ctx context.Context, code string) ([]domain.Ticket, error)
	TakenSeats(ctx context.Context, flightID int64, seats []string) ([]string, error)
	OccupiedSeats(ctx context.Context, flightID int64) ([]string, error)
	// Transition moves a ticket from one status to another only if it is still in from.
	Transition(ctx context.Context, id int64, from, to domain.TicketStatus, at time.Time) (*domain.Ticket, error)
	ListExpiredHolds(ctx context.Context, filter ExpiredHoldsFilter) ([]domain.Ticket, error)
}

type PGTicketRepository struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) TicketRepository {
	return &PGTicketRepository{db: db}
}

const ticketColumns = `id, flight_id, fare_class_id, passenger_id, booking_customer_id, seat_number, fare_cents,
	confirmation_code, status, payment_time, created_at, deleted_at`

// CreateHeld inserts all tickets in one transaction. A seat collision on any of them
// rolls back the whole set.
func (r *PGTicketRepository) CreateHeld(ctx context.Context, tickets []*domain.Ticket) error {
	return withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		for _, t := range tickets {
			t.Status = domain.TicketStatusHeld
			err := q.QueryRowxContext(ctx, `INSERT INTO tickets
				(flight_id, fare_class_id, passenger_id, booking_customer_id, seat_number, fare_cents, confirmation_code, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, created_at`,
				t.FlightID, t.FareClassID, t.PassengerID, t.BookingCustomerID, t.SeatNumber, t.FareCents, t.ConfirmationCode, t.Status).
				Scan(&t.ID, &t.CreatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return &domain.SeatTakenError{SeatNumber: t.SeatNumber}
				}
				return fmt.Errorf("insert ticket for seat %s: %w", t.SeatNumber, err)
			}
		}
		return nil
	})
}

func (r *PGTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := conn(ctx, r.db).GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTicketRepository) ListByConfirmationCode(ctx context.Context, code string) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0)
	err := conn(ctx, r.db).SelectContext(ctx, &tickets, `SELECT `+ticketColumns+` FROM tickets WHERE confirmation_code=$1 ORDER BY id`, code)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *PGTicketRepository) TakenSeats(ctx context.Context, flightID int64, seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT seat_number FROM tickets
		WHERE flight_id = ? AND status <> 'CANCELED' AND seat_number IN (?)
		ORDER BY seat_number`, flightID, seats)
	if err != nil {
		return nil, fmt.Errorf("build taken seats query: %w", err)
	}

	q := conn(ctx, r.db)
	var taken []string
	if err := q.SelectContext(ctx, &taken, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return taken, nil
}

func (r *PGTicketRepository) OccupiedSeats(ctx context.Context, flightID int64) ([]string, error) {
	var seats []string
	err := conn(ctx, r.db).SelectContext(ctx, &seats, `SELECT seat_number FROM tickets WHERE flight_id=$1 AND status <> 'CANCELED'`, flightID)
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func (r *PGTicketRepository) Transition(ctx context.Context, id int64, from, to domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	if !from.CanTransitionTo(to) {
		return nil, domain.ErrInvalidTransition
	}

	q := conn(ctx, r.db)
	var t domain.Ticket
	err := q.GetContext(ctx, &t, `UPDATE tickets SET
			status = $3::text,
			payment_time = CASE WHEN $3::text = 'PAID' THEN $4 ELSE payment_time END,
			deleted_at = CASE WHEN $3::text = 'CANCELED' THEN $4 ELSE deleted_at END
		WHERE id = $1 AND status = $2
		RETURNING `+ticketColumns, id, from, to, at)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var current domain.TicketStatus
	if err := q.GetContext(ctx, &current, `SELECT status FROM tickets WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return nil, transitionConflict(current, to)
}

// transitionConflict explains why a conditional transition matched no row.
func transitionConflict(current, to domain.TicketStatus) error {
	switch {
	case current == to && to == domain.TicketStatusPaid:
		return domain.ErrAlreadyPaid
	case current == to && to == domain.TicketStatusCanceled:
		return domain.ErrAlreadyCanceled
	}
	return fmt.Errorf("%w: ticket is %s", domain.ErrStaleTransition, current)
}

func (r *PGTicketRepository) ListExpiredHolds(ctx context.Context, filter ExpiredHoldsFilter) ([]domain.Ticket, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	tickets := make([]domain.Ticket, 0)
	err := conn(ctx, r.db).SelectContext(ctx, &tickets, `SELECT t.id, t.flight_id, t.fare_class_id, t.passenger_id, t.booking_customer_id,
			t.seat_number, t.fare_cents, t.confirmation_code, t.status, t.payment_time, t.created_at, t.deleted_at
		FROM tickets t
		JOIN flights f ON f.id = t.flight_id
		WHERE t.status = 'HELD'
		  AND t.created_at <= $2
		  AND (f.departure_time < $1 OR ($3::timestamptz IS NOT NULL AND t.created_at <= $3::timestamptz))
		ORDER BY f.departure_time, t.id
		LIMIT $4`,
		filter.DepartureBefore, filter.CreatedBefore, filter.HeldBefore, limit)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

var _ TicketRepository = (*PGTicketRepository)(nil)
