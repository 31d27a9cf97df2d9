package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Domenick1991/seatbooking/internal/kafka"
	segkafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Sender turns booking events into customer notifications. Delivery is a structured log
// line; a mail relay can replace it without touching the consumer.
type Sender struct {
	log logrus.FieldLogger
}

func NewSender(log logrus.FieldLogger) *Sender {
	return &Sender{log: log}
}

func subject(event kafka.BookingEvent) (string, bool) {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s is held, payment pending", event.ConfirmationCode), true
	case kafka.EventBookingConfirmed:
		return fmt.Sprintf("Booking %s is confirmed", event.ConfirmationCode), true
	case kafka.EventBookingCanceled:
		return fmt.Sprintf("Booking %s was canceled", event.ConfirmationCode), true
	case kafka.EventTicketExpired:
		return fmt.Sprintf("Hold on booking %s expired", event.ConfirmationCode), true
	case kafka.EventRefundRequested:
		return fmt.Sprintf("Refund started for booking %s", event.ConfirmationCode), true
	}
	return "", false
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subj, ok := subject(event)
	if !ok {
		s.log.WithField("type", event.Type).Debug("no notification for event type")
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"event_id":          event.ID,
		"confirmation_code": event.ConfirmationCode,
		"flight_id":         event.FlightID,
		"seats":             strings.Join(event.SeatNumbers, ","),
		"amount_cents":      event.AmountCents,
	}).Info(subj)
	return nil
}

// Handle decodes a notifications topic message and sends it.
func (s *Sender) Handle(ctx context.Context, msg segkafka.Message) error {
	var event kafka.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return &kafka.PoisonError{Err: fmt.Errorf("decode booking event: %w", err)}
	}
	return s.Send(ctx, event)
}
