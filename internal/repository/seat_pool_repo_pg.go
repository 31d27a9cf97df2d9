package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/jmoiron/sqlx"
)

// ReleaseResult reports the pool state after a release. Overflow is the number of seats
// that did not fit under total_seats and were dropped by the clamp.
type ReleaseResult struct {
	Remaining int
	Overflow  int
}

// SeatPoolRepository owns the remaining_seats counters. Both mutations are single
// conditional statements, so concurrent callers never push a counter out of [0, total].
type SeatPoolRepository interface {
	Reserve(ctx context.Context, key domain.PoolKey, count int) error
	Release(ctx context.Context, key domain.PoolKey, count int) (ReleaseResult, error)
	Get(ctx context.Context, key domain.PoolKey) (*domain.FareClass, error)
}

type PGSeatPoolRepository struct {
	db *sqlx.DB
}

func NewSeatPoolRepository(db *sqlx.DB) SeatPoolRepository {
	return &PGSeatPoolRepository{db: db}
}

func (r *PGSeatPoolRepository) Reserve(ctx context.Context, key domain.PoolKey, count int) error {
	if count <= 0 {
		return fmt.Errorf("reserve %d seats: count must be positive", count)
	}

	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, `UPDATE fare_classes
		SET remaining_seats = remaining_seats - $3, updated_at = now()
		WHERE flight_id = $1 AND id = $2 AND NOT retired AND remaining_seats >= $3`,
		key.FlightID, key.FareClassID, count)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var retired bool
	if err := q.GetContext(ctx, &retired, `SELECT retired FROM fare_classes WHERE flight_id = $1 AND id = $2`, key.FlightID, key.FareClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrFareClassNotFound
		}
		return err
	}
	if retired {
		return domain.ErrFareClassNotFound
	}
	return domain.ErrInsufficientSeats
}

func (r *PGSeatPoolRepository) Release(ctx context.Context, key domain.PoolKey, count int) (ReleaseResult, error) {
	if count <= 0 {
		return ReleaseResult{}, fmt.Errorf("release %d seats: count must be positive", count)
	}

	var res ReleaseResult
	err := conn(ctx, r.db).QueryRowxContext(ctx, `WITH prev AS (
			SELECT id, remaining_seats, total_seats FROM fare_classes
			WHERE flight_id = $1 AND id = $2
			FOR UPDATE
		)
		UPDATE fare_classes f
		SET remaining_seats = LEAST(prev.total_seats, prev.remaining_seats + $3), updated_at = now()
		FROM prev
		WHERE f.id = prev.id
		RETURNING f.remaining_seats, GREATEST(0, prev.remaining_seats + $3 - prev.total_seats)`,
		key.FlightID, key.FareClassID, count).Scan(&res.Remaining, &res.Overflow)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReleaseResult{}, domain.ErrFareClassNotFound
		}
		return ReleaseResult{}, err
	}
	return res, nil
}

func (r *PGSeatPoolRepository) Get(ctx context.Context, key domain.PoolKey) (*domain.FareClass, error) {
	var c domain.FareClass
	err := conn(ctx, r.db).GetContext(ctx, &c, `SELECT `+fareClassColumns+` FROM fare_classes WHERE flight_id=$1 AND id=$2`, key.FlightID, key.FareClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFareClassNotFound
		}
		return nil, err
	}
	return &c, nil
}

var _ SeatPoolRepository = (*PGSeatPoolRepository)(nil)
