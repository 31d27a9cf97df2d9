package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/seatbooking/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Connect opens the Postgres handle used by every repository. The pgx driver runs on a pgxpool;
// the postgres driver goes through lib/pq. The returned func closes everything Connect opened.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, func(), error) {
	switch cfg.Driver {
	case "pgx":
		poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("parse postgres config: %w", err)
		}
		if cfg.MaxConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxConns)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return db, func() {
			db.Close()
			pool.Close()
		}, nil
	case "postgres":
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		return db, func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("driver %q has no sql connection", cfg.Driver)
}

// Transactor runs fn inside one storage transaction. Repositories called with the context
// passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type SQLTransactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, t.db, fn)
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// conn returns the transaction bound to ctx, or db itself.
func conn(ctx context.Context, db *sqlx.DB) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
