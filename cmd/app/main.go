package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/seatbooking/config"
	"github.com/Domenick1991/seatbooking/internal/bootstrap"
	"github.com/Domenick1991/seatbooking/internal/cache"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/Domenick1991/seatbooking/internal/logger"
	"github.com/Domenick1991/seatbooking/internal/service/booking"
	"github.com/Domenick1991/seatbooking/internal/service/flights"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/Domenick1991/seatbooking/internal/service/passengers"
	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	var checks []bootstrap.HealthCheck
	if storage.Check != nil {
		checks = append(checks, storage.Check)
	}

	var (
		flightCache    flights.FlightCache
		bookingOpts    []booking.BookingServiceOption
		reconcilerOpts []payment.ReconcilerOption
		gateway        payment.PaymentGateway = payment.LocalGateway{}
		notifier       payment.Notifier
	)

	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()
		redisCache := cache.NewRedisCache(client, cfg.Booking.FlightsCacheDuration(), time.Duration(cfg.Worker.IdempotencyTTLHours)*time.Hour)
		flightCache = redisCache
		bookingOpts = append(bookingOpts, booking.WithSeatLocks(redisCache, cfg.Booking.SeatLockTTL()))
		checks = append(checks, redisCache.Ping)
	} else {
		log.Warn("redis is not configured, seat locks and flight cache are disabled")
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		bookingOpts = append(bookingOpts, booking.WithEvents(producer, cfg.Kafka.BookingEventsTopic))
		reconcilerOpts = append(reconcilerOpts, payment.WithEvents(producer, cfg.Kafka.BookingEventsTopic))
		gateway = payment.NewKafkaGateway(producer, cfg.Kafka.PaymentRequestsTopic)
		notifier = payment.NewEventNotifier(producer, cfg.Kafka.NotificationsTopic)
		checks = append(checks, producer.CheckConnection)
	} else {
		log.Warn("kafka is not configured, booking events are not published")
	}

	flightService := flights.NewFlightService(storage.Flights, flightCache)
	bookingService := booking.NewBookingService(
		flightService,
		inventory.NewService(storage.SeatPools, log),
		passengers.NewService(storage.Passengers, log),
		storage.Tickets,
		storage.Tx,
		log,
		bookingOpts...,
	)
	reconciler := payment.NewReconciler(storage.Tickets, storage.PaymentOrders, gateway, notifier, log, reconcilerOpts...)

	return bootstrap.Run(ctx, cfg, log, bootstrap.Services{
		Flights:  flightService,
		Bookings: bookingService,
		Payments: reconciler,
	}, checks...)
}
