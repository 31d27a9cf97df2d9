package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
)

type ticketRepo struct {
	s *Store
}

// CreateHeld checks every seat before inserting any ticket, so a collision leaves
// nothing behind.
func (r ticketRepo) CreateHeld(ctx context.Context, tickets []*domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[seatKey]struct{}, len(tickets))
	for _, t := range tickets {
		key := seatKey{flightID: t.FlightID, seat: t.SeatNumber}
		if _, taken := r.s.activeSeats[key]; taken {
			return &domain.SeatTakenError{SeatNumber: t.SeatNumber}
		}
		if _, dup := seen[key]; dup {
			return &domain.SeatTakenError{SeatNumber: t.SeatNumber}
		}
		seen[key] = struct{}{}
	}

	now := r.s.now()
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		r.s.nextTicketID++
		t.ID = r.s.nextTicketID
		t.Status = domain.TicketStatusHeld
		t.CreatedAt = now
		stored := *t
		r.s.tickets[t.ID] = &stored
		r.s.activeSeats[seatKey{flightID: t.FlightID, seat: t.SeatNumber}] = t.ID
		ids = append(ids, t.ID)
	}

	onRollback(ctx, func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		for _, id := range ids {
			if t, ok := r.s.tickets[id]; ok {
				delete(r.s.activeSeats, seatKey{flightID: t.FlightID, seat: t.SeatNumber})
				delete(r.s.tickets, id)
			}
		}
	})
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r ticketRepo) ListByConfirmationCode(ctx context.Context, code string) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tickets := make([]domain.Ticket, 0)
	for _, t := range r.s.tickets {
		if t.ConfirmationCode == code {
			tickets = append(tickets, *t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

func (r ticketRepo) TakenSeats(ctx context.Context, flightID int64, seats []string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var taken []string
	for _, seat := range seats {
		if _, ok := r.s.activeSeats[seatKey{flightID: flightID, seat: seat}]; ok {
			taken = append(taken, seat)
		}
	}
	sort.Strings(taken)
	return taken, nil
}

func (r ticketRepo) OccupiedSeats(ctx context.Context, flightID int64) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var seats []string
	for key := range r.s.activeSeats {
		if key.flightID == flightID {
			seats = append(seats, key.seat)
		}
	}
	return seats, nil
}

func (r ticketRepo) Transition(ctx context.Context, id int64, from, to domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	if !from.CanTransitionTo(to) {
		return nil, domain.ErrInvalidTransition
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if t.Status != from {
		switch {
		case t.Status == to && to == domain.TicketStatusPaid:
			return nil, domain.ErrAlreadyPaid
		case t.Status == to && to == domain.TicketStatusCanceled:
			return nil, domain.ErrAlreadyCanceled
		}
		return nil, fmt.Errorf("%w: ticket is %s", domain.ErrStaleTransition, t.Status)
	}

	prev := *t
	if err := t.Apply(to, at); err != nil {
		return nil, err
	}
	if to == domain.TicketStatusCanceled {
		delete(r.s.activeSeats, seatKey{flightID: t.FlightID, seat: t.SeatNumber})
	}

	onRollback(ctx, func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		restored := prev
		r.s.tickets[id] = &restored
		if restored.Status != domain.TicketStatusCanceled {
			r.s.activeSeats[seatKey{flightID: restored.FlightID, seat: restored.SeatNumber}] = id
		}
	})

	cp := *t
	return &cp, nil
}

func (r ticketRepo) ListExpiredHolds(ctx context.Context, filter repository.ExpiredHoldsFilter) ([]domain.Ticket, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type candidate struct {
		ticket    domain.Ticket
		departure time.Time
	}
	var found []candidate
	for _, t := range r.s.tickets {
		if t.Status != domain.TicketStatusHeld || t.CreatedAt.After(filter.CreatedBefore) {
			continue
		}
		f, ok := r.s.flights[t.FlightID]
		if !ok {
			continue
		}
		departing := f.DepartureTime.Before(filter.DepartureBefore)
		heldTooLong := filter.HeldBefore != nil && !t.CreatedAt.After(*filter.HeldBefore)
		if departing || heldTooLong {
			found = append(found, candidate{ticket: *t, departure: f.DepartureTime})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].departure.Equal(found[j].departure) {
			return found[i].ticket.ID < found[j].ticket.ID
		}
		return found[i].departure.Before(found[j].departure)
	})

	tickets := make([]domain.Ticket, 0, min(limit, len(found)))
	for i := 0; i < len(found) && i < limit; i++ {
		tickets = append(tickets, found[i].ticket)
	}
	return tickets, nil
}

var _ repository.TicketRepository = ticketRepo{}
