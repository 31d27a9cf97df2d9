package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/seatbooking/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Deduplicator remembers processed messages. Seen marks key and reports whether it was
// already marked.
type Deduplicator interface {
	Seen(ctx context.Context, key string) (bool, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	log    logrus.FieldLogger
	dedup  Deduplicator
}

type ConsumerOption func(*Consumer)

func WithDeduplicator(d Deduplicator) ConsumerOption {
	return func(c *Consumer) { c.dedup = d }
}

func NewConsumer(brokers []string, groupID, topic string, log logrus.FieldLogger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log.WithField("topic", topic),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume hands every message to handler and commits it afterwards, whatever the handler
// returned. Handler failures are logged and counted. It returns nil once ctx is canceled.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		result := c.process(ctx, msg, handler)
		metrics.MessagesProcessed.WithLabelValues(msg.Topic, result).Inc()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message, handler Handler) string {
	log := c.log.WithFields(logrus.Fields{"partition": msg.Partition, "offset": msg.Offset})

	if c.dedup != nil {
		seen, err := c.dedup.Seen(ctx, DedupKey(msg))
		if err != nil {
			log.WithError(err).Warn("idempotency check failed, processing anyway")
		} else if seen {
			log.Info("duplicate message skipped")
			return "duplicate"
		}
	}

	if err := handler(ctx, msg); err != nil {
		var poison *PoisonError
		if errors.As(err, &poison) {
			log.WithError(err).Error("dropping undecodable message")
			return "invalid"
		}
		log.WithError(err).Error("message handler failed")
		return "failed"
	}
	return "ok"
}

func DedupKey(msg kafka.Message) string {
	return fmt.Sprintf("idem:%s:%d:%d", msg.Topic, msg.Partition, msg.Offset)
}

// PoisonError marks a message that can never be processed.
type PoisonError struct {
	Err error
}

func (e *PoisonError) Error() string { return "undecodable message: " + e.Err.Error() }

func (e *PoisonError) Unwrap() error { return e.Err }
