package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/jmoiron/sqlx"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetDeparture(ctx context.Context, flightID int64) (time.Time, error)
	GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error)
	ListFareClasses(ctx context.Context, flightID int64) ([]domain.FareClass, error)
}

type PGFlightRepository struct {
	db *sqlx.DB
}

func NewFlightRepository(db *sqlx.DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, from_airport, to_airport, departure_time, arrival_time, created_at, updated_at`

const fareClassColumns = `id, flight_id, name, total_seats, remaining_seats, fare_cents, retired, created_at, updated_at`

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &flights, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`); err != nil {
		return nil, err
	}
	return flights, nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	var f domain.Flight
	if err := conn(ctx, r.db).GetContext(ctx, &f, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) GetDeparture(ctx context.Context, flightID int64) (time.Time, error) {
	var departure time.Time
	if err := conn(ctx, r.db).GetContext(ctx, &departure, `SELECT departure_time FROM flights WHERE id=$1`, flightID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrFlightNotFound
		}
		return time.Time{}, err
	}
	return departure, nil
}

func (r *PGFlightRepository) GetFareClass(ctx context.Context, flightID, fareClassID int64) (*domain.FareClass, error) {
	var c domain.FareClass
	err := conn(ctx, r.db).GetContext(ctx, &c, `SELECT `+fareClassColumns+` FROM fare_classes WHERE flight_id=$1 AND id=$2`, flightID, fareClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFareClassNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGFlightRepository) ListFareClasses(ctx context.Context, flightID int64) ([]domain.FareClass, error) {
	classes := make([]domain.FareClass, 0)
	err := conn(ctx, r.db).SelectContext(ctx, &classes, `SELECT `+fareClassColumns+` FROM fare_classes WHERE flight_id=$1 AND NOT retired ORDER BY fare_cents DESC`, flightID)
	if err != nil {
		return nil, err
	}
	return classes, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
