package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/Domenick1991/seatbooking/internal/metrics"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type PaymentUseCase interface {
	StartPayment(ctx context.Context, code string) (*domain.PaymentOrder, error)
	ConfirmPayment(ctx context.Context, code, gatewayOrderID string) (*Reconciliation, error)
	FailPayment(ctx context.Context, code string) error
	HandleCallback(ctx context.Context, cb Callback) (*Reconciliation, error)
}

// PaymentGateway opens payment orders with the external payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, code string, amountCents int64) (string, error)
}

// Notifier tells the passenger side that a booking has been paid.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *domain.Booking) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

var ErrUnknownStatus = errors.New("unknown payment status")

const (
	CallbackSucceeded = "SUCCEEDED"
	CallbackFailed    = "FAILED"
)

// Callback is the gateway's verdict on one order.
type Callback struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Reconciliation reports what a payment confirmation did to each ticket of a booking.
type Reconciliation struct {
	ConfirmationCode string          `json:"confirmation_code"`
	Paid             []domain.Ticket `json:"paid"`
	AlreadyPaid      []domain.Ticket `json:"already_paid"`
	// Late tickets were canceled before the payment arrived and are queued for refund.
	Late []domain.Ticket `json:"late"`
}

type Reconciler struct {
	tickets     repository.TicketRepository
	orders      repository.PaymentOrderRepository
	gateway     PaymentGateway
	notifier    Notifier
	producer    Producer
	eventsTopic string
	log         logrus.FieldLogger
	now         func() time.Time
}

type ReconcilerOption func(*Reconciler)

func WithEvents(producer Producer, topic string) ReconcilerOption {
	return func(r *Reconciler) {
		r.producer = producer
		r.eventsTopic = topic
	}
}

func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(
	tickets repository.TicketRepository,
	orders repository.PaymentOrderRepository,
	gateway PaymentGateway,
	notifier Notifier,
	log logrus.FieldLogger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		tickets:  tickets,
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartPayment opens a gateway order for the unpaid part of a booking. A pending order
// for the same amount is reused.
func (r *Reconciler) StartPayment(ctx context.Context, code string) (*domain.PaymentOrder, error) {
	booking, err := r.load(ctx, code)
	if err != nil {
		return nil, err
	}
	amount := booking.TotalCents(domain.TicketStatusHeld)
	if amount == 0 {
		return nil, domain.ErrNothingToPay
	}

	pending, err := r.orders.FindPending(ctx, code)
	switch {
	case err == nil && pending.AmountCents == amount:
		return pending, nil
	case err != nil && !errors.Is(err, domain.ErrPaymentOrderNotFound):
		return nil, fmt.Errorf("find pending order: %w", err)
	}

	orderID, err := r.gateway.CreateOrder(ctx, code, amount)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	order := &domain.PaymentOrder{GatewayOrderID: orderID, ConfirmationCode: code, AmountCents: amount}
	if err := r.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("save payment order: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"confirmation_code": code,
		"order_id":          orderID,
		"amount_cents":      amount,
	}).Info("payment started")
	return order, nil
}

// ConfirmPayment marks every held ticket of the booking as paid. Replays are harmless:
// paid tickets are reported as such and never fail the call. Tickets canceled before the
// call are skipped; only a ticket canceled while this call pays it is reported as late and
// refunded. Seat counters are not touched. gatewayOrderID may be empty when the
// confirmation does not come from a gateway order.
//
// A ticket that fails is logged and the others are still settled. The order is confirmed
// only when every ticket settled, so a redelivery can finish the job; the joined ticket
// errors are returned together with the partial reconciliation.
func (r *Reconciler) ConfirmPayment(ctx context.Context, code, gatewayOrderID string) (*Reconciliation, error) {
	var order *domain.PaymentOrder
	if gatewayOrderID != "" {
		var err error
		order, err = r.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return nil, err
		}
		if order.ConfirmationCode != code {
			return nil, domain.ErrPaymentOrderMismatch
		}
	}

	booking, err := r.load(ctx, code)
	if err != nil {
		return nil, err
	}
	log := r.log.WithField("confirmation_code", code)

	rec := &Reconciliation{ConfirmationCode: code}
	var errs []error
	for _, t := range booking.Tickets {
		if err := r.settle(ctx, t, rec); err != nil {
			log.WithError(err).WithField("ticket_id", t.ID).Error("failed to settle ticket")
			errs = append(errs, err)
		}
	}

	refund := true
	if order != nil {
		refund = order.Status != domain.PaymentOrderConfirmed
		if len(errs) == 0 {
			// a concurrent delivery that confirmed first owns the refunds
			changed, err := r.orders.ConfirmOrder(ctx, gatewayOrderID)
			if err != nil {
				errs = append(errs, fmt.Errorf("mark order confirmed: %w", err))
			} else if !changed {
				refund = false
			}
		}
	}
	if len(rec.Late) > 0 && refund {
		r.publish(ctx, kafka.EventRefundRequested, rec.Late)
	}

	if len(rec.Paid) > 0 && r.notifier != nil {
		if err := r.notifier.BookingConfirmed(ctx, domain.NewBooking(rec.Paid)); err != nil {
			log.WithError(err).Warn("failed to send booking confirmation")
		}
	}

	log.WithFields(logrus.Fields{
		"paid":         len(rec.Paid),
		"already_paid": len(rec.AlreadyPaid),
		"late":         len(rec.Late),
		"failed":       len(errs),
	}).Info("payment confirmed")
	return rec, errors.Join(errs...)
}

// settle pays one ticket and files it into rec. Tickets canceled before the payment was
// applied are not part of it and are left out.
func (r *Reconciler) settle(ctx context.Context, t domain.Ticket, rec *Reconciliation) error {
	switch t.Status {
	case domain.TicketStatusPaid:
		rec.AlreadyPaid = append(rec.AlreadyPaid, t)
		metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusPaid), "replay").Inc()
		return nil
	case domain.TicketStatusCanceled:
		return nil
	}

	paid, err := r.tickets.Transition(ctx, t.ID, domain.TicketStatusHeld, domain.TicketStatusPaid, r.now())
	switch {
	case err == nil:
		rec.Paid = append(rec.Paid, *paid)
		metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusPaid), "applied").Inc()
		return nil
	case errors.Is(err, domain.ErrAlreadyPaid):
		rec.AlreadyPaid = append(rec.AlreadyPaid, t)
		metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusPaid), "replay").Inc()
		return nil
	case errors.Is(err, domain.ErrStaleTransition):
		// lost the race against expiry or cancellation
		metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusPaid), "stale").Inc()
		current, getErr := r.tickets.GetByID(ctx, t.ID)
		if getErr != nil {
			return fmt.Errorf("reload ticket %d: %w", t.ID, getErr)
		}
		r.log.WithFields(logrus.Fields{"ticket_id": t.ID, "status": current.Status}).Warn("payment arrived after ticket left HELD")
		if current.Status == domain.TicketStatusCanceled {
			rec.Late = append(rec.Late, *current)
		}
		return nil
	}
	metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusPaid), "failed").Inc()
	return fmt.Errorf("pay ticket %d: %w", t.ID, err)
}

// FailPayment records a declined payment. Tickets stay HELD until they are paid, canceled or expire.
func (r *Reconciler) FailPayment(ctx context.Context, code string) error {
	if _, err := r.load(ctx, code); err != nil {
		return err
	}
	order, err := r.orders.FindPending(ctx, code)
	if errors.Is(err, domain.ErrPaymentOrderNotFound) {
		r.log.WithField("confirmation_code", code).Info("payment failed without a pending order")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find pending order: %w", err)
	}
	return r.failOrder(ctx, order)
}

func (r *Reconciler) failOrder(ctx context.Context, order *domain.PaymentOrder) error {
	if order.Status != domain.PaymentOrderPending {
		return nil
	}
	if err := r.orders.UpdateStatus(ctx, order.GatewayOrderID, domain.PaymentOrderFailed); err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	r.log.WithFields(logrus.Fields{
		"confirmation_code": order.ConfirmationCode,
		"order_id":          order.GatewayOrderID,
	}).Info("payment failed")
	return nil
}

// HandleCallback maps a gateway callback back to its booking. The reconciliation is nil
// for failed payments.
func (r *Reconciler) HandleCallback(ctx context.Context, cb Callback) (*Reconciliation, error) {
	order, err := r.orders.GetByGatewayOrderID(ctx, cb.OrderID)
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(cb.Status) {
	case CallbackSucceeded:
		return r.ConfirmPayment(ctx, order.ConfirmationCode, order.GatewayOrderID)
	case CallbackFailed:
		return nil, r.failOrder(ctx, order)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStatus, cb.Status)
}

func (r *Reconciler) load(ctx context.Context, code string) (*domain.Booking, error) {
	tickets, err := r.tickets.ListByConfirmationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return domain.NewBooking(tickets), nil
}

func (r *Reconciler) publish(ctx context.Context, eventType string, tickets []domain.Ticket) {
	if r.producer == nil || r.eventsTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, tickets, r.now())
	if err := r.producer.Publish(ctx, r.eventsTopic, event.ConfirmationCode, event); err != nil {
		r.log.WithError(err).WithField("event", eventType).Warn("failed to publish payment event")
	}
}

var _ PaymentUseCase = (*Reconciler)(nil)
