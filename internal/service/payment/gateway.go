package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/google/uuid"
)

const publishRetries = 3

type RetryingProducer interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// KafkaGateway hands payment requests to the payment provider over Kafka. Its verdicts
// come back on the callbacks topic or through the HTTP callback endpoint.
type KafkaGateway struct {
	producer RetryingProducer
	topic    string
}

func NewKafkaGateway(producer RetryingProducer, topic string) *KafkaGateway {
	return &KafkaGateway{producer: producer, topic: topic}
}

func (g *KafkaGateway) CreateOrder(ctx context.Context, code string, amountCents int64) (string, error) {
	req := kafka.PaymentRequest{
		OrderID:          uuid.NewString(),
		ConfirmationCode: code,
		AmountCents:      amountCents,
		RequestedAt:      time.Now().UTC(),
	}
	if err := g.producer.PublishWithRetry(ctx, g.topic, code, req, publishRetries); err != nil {
		return "", fmt.Errorf("request payment: %w", err)
	}
	return req.OrderID, nil
}

// LocalGateway only allocates order ids. It serves deployments without Kafka, where the
// provider reports back through the HTTP callback endpoint.
type LocalGateway struct{}

func (LocalGateway) CreateOrder(ctx context.Context, code string, amountCents int64) (string, error) {
	return uuid.NewString(), nil
}

// EventNotifier publishes booking confirmations to the notifications topic, where the
// worker picks them up for email delivery.
type EventNotifier struct {
	producer Producer
	topic    string
}

func NewEventNotifier(producer Producer, topic string) *EventNotifier {
	return &EventNotifier{producer: producer, topic: topic}
}

func (n *EventNotifier) BookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	event := kafka.NewBookingEvent(kafka.EventBookingConfirmed, booking.Tickets, time.Now().UTC())
	return n.producer.Publish(ctx, n.topic, booking.ConfirmationCode, event)
}

var (
	_ PaymentGateway = (*KafkaGateway)(nil)
	_ PaymentGateway = LocalGateway{}
	_ Notifier       = (*EventNotifier)(nil)
)
