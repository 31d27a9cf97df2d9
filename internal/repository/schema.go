package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS flights (
		id BIGSERIAL PRIMARY KEY,
		from_airport TEXT NOT NULL,
		to_airport TEXT NOT NULL,
		departure_time TIMESTAMPTZ NOT NULL,
		arrival_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS fare_classes (
		id BIGSERIAL PRIMARY KEY,
		flight_id BIGINT NOT NULL REFERENCES flights(id),
		name TEXT NOT NULL,
		total_seats INTEGER NOT NULL CHECK (total_seats >= 0),
		remaining_seats INTEGER NOT NULL CHECK (remaining_seats >= 0 AND remaining_seats <= total_seats),
		fare_cents BIGINT NOT NULL CHECK (fare_cents >= 0),
		retired BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (flight_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS passengers (
		id BIGSERIAL PRIMARY KEY,
		citizen_id TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGSERIAL PRIMARY KEY,
		flight_id BIGINT NOT NULL REFERENCES flights(id),
		fare_class_id BIGINT NOT NULL REFERENCES fare_classes(id),
		passenger_id BIGINT NOT NULL REFERENCES passengers(id),
		booking_customer_id BIGINT,
		seat_number TEXT NOT NULL,
		fare_cents BIGINT NOT NULL,
		confirmation_code TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('HELD', 'PAID', 'CANCELED')),
		payment_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tickets_flight_seat_active_uq
		ON tickets (flight_id, seat_number) WHERE status <> 'CANCELED'`,
	`CREATE INDEX IF NOT EXISTS tickets_confirmation_code_idx ON tickets (confirmation_code)`,
	`CREATE INDEX IF NOT EXISTS tickets_held_created_idx ON tickets (created_at) WHERE status = 'HELD'`,
	`CREATE TABLE IF NOT EXISTS payment_orders (
		gateway_order_id TEXT PRIMARY KEY,
		confirmation_code TEXT NOT NULL,
		amount_cents BIGINT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'CONFIRMED', 'FAILED')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS payment_orders_code_idx ON payment_orders (confirmation_code)`,
}

func InitSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
