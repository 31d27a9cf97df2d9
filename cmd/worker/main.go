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
	"github.com/Domenick1991/seatbooking/internal/email"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/Domenick1991/seatbooking/internal/logger"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/Domenick1991/seatbooking/internal/service/reclaim"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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
		log.WithError(err).Fatal("worker error")
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	pools := inventory.NewService(storage.SeatPools, log)
	reclaimCfg := reclaim.Config{
		MaxHoldDuration: cfg.Booking.MaxHoldDuration(),
		HoldTTL:         cfg.Booking.HoldTTL(),
		MinHoldAge:      cfg.Booking.MinHoldAge(),
		Interval:        cfg.Worker.ReclaimInterval(),
		BatchSize:       cfg.Worker.ReclaimBatchSize,
	}

	var (
		reclaimOpts    []reclaim.Option
		reconcilerOpts []payment.ReconcilerOption
		consumerOpts   []kafka.ConsumerOption
	)

	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()
		redisCache := cache.NewRedisCache(client, cfg.Booking.FlightsCacheDuration(), time.Duration(cfg.Worker.IdempotencyTTLHours)*time.Hour)
		consumerOpts = append(consumerOpts, kafka.WithDeduplicator(redisCache))
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		reclaimOpts = append(reclaimOpts, reclaim.WithEvents(producer, cfg.Kafka.BookingEventsTopic))
		reconcilerOpts = append(reconcilerOpts, payment.WithEvents(producer, cfg.Kafka.BookingEventsTopic))

		reconciler := payment.NewReconciler(storage.Tickets, storage.PaymentOrders,
			payment.NewKafkaGateway(producer, cfg.Kafka.PaymentRequestsTopic),
			payment.NewEventNotifier(producer, cfg.Kafka.NotificationsTopic),
			log, reconcilerOpts...)

		callbacks := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.PaymentCallbacksTopic, log, consumerOpts...)
		defer callbacks.Close()
		g.Go(func() error {
			return callbacks.Consume(ctx, payment.CallbackHandler(reconciler))
		})

		notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log, consumerOpts...)
		defer notifications.Close()
		sender := email.NewSender(log)
		g.Go(func() error {
			return notifications.Consume(ctx, sender.Handle)
		})
	} else {
		log.Warn("kafka is not configured, only the expiry sweep runs")
	}

	reclaimer := reclaim.NewReclaimer(storage.Tickets, pools, storage.Tx, reclaimCfg, log, reclaimOpts...)
	g.Go(func() error {
		return reclaimer.Run(ctx)
	})

	log.WithFields(logrus.Fields{
		"reclaim_interval": reclaimCfg.Interval.String(),
		"max_hold":         reclaimCfg.MaxHoldDuration.String(),
	}).Info("worker started")
	return g.Wait()
}
