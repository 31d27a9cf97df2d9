package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/jmoiron/sqlx"
)

type PaymentOrderRepository interface {
	Create(ctx context.Context, order *domain.PaymentOrder) error
	GetByGatewayOrderID(ctx context.Context, orderID string) (*domain.PaymentOrder, error)
	FindPending(ctx context.Context, code string) (*domain.PaymentOrder, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.PaymentOrderStatus) error
	// ConfirmOrder moves the order to CONFIRMED and reports whether this call changed it.
	ConfirmOrder(ctx context.Context, orderID string) (bool, error)
}

type PGPaymentOrderRepository struct {
	db *sqlx.DB
}

func NewPaymentOrderRepository(db *sqlx.DB) PaymentOrderRepository {
	return &PGPaymentOrderRepository{db: db}
}

const paymentOrderColumns = `gateway_order_id, confirmation_code, amount_cents, status, created_at, updated_at`

func (r *PGPaymentOrderRepository) Create(ctx context.Context, order *domain.PaymentOrder) error {
	order.Status = domain.PaymentOrderPending
	return conn(ctx, r.db).QueryRowxContext(ctx, `INSERT INTO payment_orders (gateway_order_id, confirmation_code, amount_cents, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		order.GatewayOrderID, order.ConfirmationCode, order.AmountCents, order.Status).
		Scan(&order.CreatedAt, &order.UpdatedAt)
}

func (r *PGPaymentOrderRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	if err := conn(ctx, r.db).GetContext(ctx, &o, `SELECT `+paymentOrderColumns+` FROM payment_orders WHERE gateway_order_id=$1`, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PGPaymentOrderRepository) FindPending(ctx context.Context, code string) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	err := conn(ctx, r.db).GetContext(ctx, &o, `SELECT `+paymentOrderColumns+` FROM payment_orders
		WHERE confirmation_code=$1 AND status='PENDING'
		ORDER BY created_at DESC LIMIT 1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PGPaymentOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.PaymentOrderStatus) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE payment_orders SET status=$2, updated_at=now() WHERE gateway_order_id=$1`, orderID, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPaymentOrderNotFound
	}
	return nil
}

func (r *PGPaymentOrderRepository) ConfirmOrder(ctx context.Context, orderID string) (bool, error) {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, `UPDATE payment_orders SET status='CONFIRMED', updated_at=now()
		WHERE gateway_order_id=$1 AND status <> 'CONFIRMED'`, orderID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM payment_orders WHERE gateway_order_id=$1)`, orderID); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrPaymentOrderNotFound
	}
	return false, nil
}

var _ PaymentOrderRepository = (*PGPaymentOrderRepository)(nil)
