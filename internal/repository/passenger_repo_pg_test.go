package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var passengerCols = []string{"id", "citizen_id", "full_name", "email", "phone", "created_at", "updated_at"}

func TestPassengerRepository(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewPassengerRepository(db)
	now := time.Now()

	t.Run("Create", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO passengers`).
			WithArgs("C-1", "Ann Lee", nil, nil).
			WillReturnRows(sqlmock.NewRows(passengerCols).AddRow(1, "C-1", "Ann Lee", nil, nil, now, now))

		p, err := repo.Create(ctx, domain.PassengerInfo{CitizenID: "C-1", FullName: "Ann Lee"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
		assert.Nil(t, p.Email)
	})

	t.Run("Create duplicate", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows(passengerCols))

		_, err := repo.Create(ctx, domain.PassengerInfo{CitizenID: "C-1", FullName: "Ann Lee"})
		assert.ErrorIs(t, err, domain.ErrPassengerExists)
	})

	t.Run("Find missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM passengers WHERE citizen_id`).
			WithArgs("C-404").
			WillReturnRows(sqlmock.NewRows(passengerCols))

		_, err := repo.FindByCitizenID(ctx, "C-404")
		assert.ErrorIs(t, err, domain.ErrPassengerNotFound)
	})

	t.Run("Update contact", func(t *testing.T) {
		email := "ann@example.com"
		mock.ExpectQuery(`UPDATE passengers`).
			WithArgs(int64(1), email, nil).
			WillReturnRows(sqlmock.NewRows(passengerCols).AddRow(1, "C-1", "Ann Lee", email, nil, now, now))

		p, err := repo.UpdateContact(ctx, 1, &email, nil)
		require.NoError(t, err)
		require.NotNil(t, p.Email)
		assert.Equal(t, email, *p.Email)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentOrderRepository(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewPaymentOrderRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO payment_orders`).
		WithArgs("order-1", "CODE", int64(30000), domain.PaymentOrderPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	order := &domain.PaymentOrder{GatewayOrderID: "order-1", ConfirmationCode: "CODE", AmountCents: 30000}
	require.NoError(t, repo.Create(ctx, order))
	assert.Equal(t, domain.PaymentOrderPending, order.Status)

	mock.ExpectExec(`UPDATE payment_orders SET status`).
		WithArgs("order-2", domain.PaymentOrderConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "order-2", domain.PaymentOrderConfirmed), domain.ErrPaymentOrderNotFound)

	mock.ExpectExec(`UPDATE payment_orders SET status='CONFIRMED'`).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.ConfirmOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(`UPDATE payment_orders SET status='CONFIRMED'`).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	changed, err = repo.ConfirmOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectQuery(`SELECT .+ FROM payment_orders WHERE gateway_order_id`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"gateway_order_id", "confirmation_code", "amount_cents", "status", "created_at", "updated_at"}).
			AddRow("order-1", "CODE", 30000, "PENDING", now, now))
	found, err := repo.GetByGatewayOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "CODE", found.ConfirmationCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}
