package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/seatbooking/internal/kafka"
	segkafka "github.com/segmentio/kafka-go"
)

// CallbackHandler applies gateway callbacks read from Kafka. Messages that can never
// succeed are reported as poison so the consumer drops them.
func CallbackHandler(uc PaymentUseCase) kafka.Handler {
	return func(ctx context.Context, msg segkafka.Message) error {
		var cb Callback
		if err := json.Unmarshal(msg.Value, &cb); err != nil {
			return &kafka.PoisonError{Err: fmt.Errorf("decode payment callback: %w", err)}
		}
		if cb.OrderID == "" {
			return &kafka.PoisonError{Err: errors.New("payment callback without order_id")}
		}

		_, err := uc.HandleCallback(ctx, cb)
		if errors.Is(err, ErrUnknownStatus) {
			return &kafka.PoisonError{Err: err}
		}
		return err
	}
}
