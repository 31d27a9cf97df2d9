package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/jmoiron/sqlx"
)

type PassengerRepository interface {
	FindByCitizenID(ctx context.Context, citizenID string) (*domain.Passenger, error)
	// Create fails with domain.ErrPassengerExists when the citizen id is already registered.
	Create(ctx context.Context, info domain.PassengerInfo) (*domain.Passenger, error)
	UpdateContact(ctx context.Context, id int64, email, phone *string) (*domain.Passenger, error)
}

type PGPassengerRepository struct {
	db *sqlx.DB
}

func NewPassengerRepository(db *sqlx.DB) PassengerRepository {
	return &PGPassengerRepository{db: db}
}

const passengerColumns = `id, citizen_id, full_name, email, phone, created_at, updated_at`

func (r *PGPassengerRepository) FindByCitizenID(ctx context.Context, citizenID string) (*domain.Passenger, error) {
	var p domain.Passenger
	if err := conn(ctx, r.db).GetContext(ctx, &p, `SELECT `+passengerColumns+` FROM passengers WHERE citizen_id=$1`, citizenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPassengerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGPassengerRepository) Create(ctx context.Context, info domain.PassengerInfo) (*domain.Passenger, error) {
	var p domain.Passenger
	err := conn(ctx, r.db).GetContext(ctx, &p, `INSERT INTO passengers (citizen_id, full_name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (citizen_id) DO NOTHING
		RETURNING `+passengerColumns, info.CitizenID, info.FullName, info.Email, info.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, domain.ErrPassengerExists
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGPassengerRepository) UpdateContact(ctx context.Context, id int64, email, phone *string) (*domain.Passenger, error) {
	var p domain.Passenger
	err := conn(ctx, r.db).GetContext(ctx, &p, `UPDATE passengers
		SET email = COALESCE($2, email), phone = COALESCE($3, phone), updated_at = now()
		WHERE id = $1
		RETURNING `+passengerColumns, id, email, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPassengerNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ PassengerRepository = (*PGPassengerRepository)(nil)
