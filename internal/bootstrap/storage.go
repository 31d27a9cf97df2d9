package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/seatbooking/config"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/Domenick1991/seatbooking/internal/repository/memory"
	"github.com/sirupsen/logrus"
)

// Storage bundles the repositories of one storage driver.
type Storage struct {
	Flights       repository.FlightRepository
	SeatPools     repository.SeatPoolRepository
	Tickets       repository.TicketRepository
	Passengers    repository.PassengerRepository
	PaymentOrders repository.PaymentOrderRepository
	Tx            repository.Transactor
	// Check is nil for drivers without a remote dependency.
	Check HealthCheck
	Close func()
}

// OpenStorage connects the configured driver. Postgres schemas are created when migrate
// is set; the memory driver is seeded from the fixtures file.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (*Storage, error) {
	if cfg.Driver == "memory" {
		store := memory.NewStore()
		if cfg.Fixtures != "" {
			if err := store.LoadFixtures(cfg.Fixtures); err != nil {
				return nil, err
			}
		}
		log.WithField("fixtures", cfg.Fixtures).Warn("using in-memory storage, state is lost on restart")
		return &Storage{
			Flights:       store.Flights(),
			SeatPools:     store.SeatPools(),
			Tickets:       store.Tickets(),
			Passengers:    store.Passengers(),
			PaymentOrders: store.PaymentOrders(),
			Tx:            store.Transactor(),
			Close:         func() {},
		}, nil
	}

	db, closeDB, err := repository.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := repository.InitSchema(ctx, db); err != nil {
			closeDB()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		log.Info("database schema is up to date")
	}

	return &Storage{
		Flights:       repository.NewFlightRepository(db),
		SeatPools:     repository.NewSeatPoolRepository(db),
		Tickets:       repository.NewTicketRepository(db),
		Passengers:    repository.NewPassengerRepository(db),
		PaymentOrders: repository.NewPaymentOrderRepository(db),
		Tx:            repository.NewTransactor(db),
		Check:         db.PingContext,
		Close:         closeDB,
	}, nil
}
