package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatus_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		from, to TicketStatus
		allowed  bool
	}{
		{TicketStatusHeld, TicketStatusPaid, true},
		{TicketStatusHeld, TicketStatusCanceled, true},
		{TicketStatusPaid, TicketStatusCanceled, true},
		{TicketStatusPaid, TicketStatusHeld, false},
		{TicketStatusCanceled, TicketStatusPaid, false},
		{TicketStatusCanceled, TicketStatusHeld, false},
		{TicketStatusHeld, TicketStatusHeld, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestTicket_Pay(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("held ticket becomes paid", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusHeld}
		require.NoError(t, ticket.Pay(now))
		assert.Equal(t, TicketStatusPaid, ticket.Status)
		require.NotNil(t, ticket.PaymentTime)
		assert.Equal(t, now, *ticket.PaymentTime)
	})

	t.Run("replay on paid ticket", func(t *testing.T) {
		paidAt := now.Add(-time.Hour)
		ticket := &Ticket{Status: TicketStatusPaid, PaymentTime: &paidAt}
		assert.ErrorIs(t, ticket.Pay(now), ErrAlreadyPaid)
		assert.Equal(t, paidAt, *ticket.PaymentTime)
	})

	t.Run("canceled ticket cannot be paid", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusCanceled}
		assert.ErrorIs(t, ticket.Pay(now), ErrInvalidTransition)
		assert.Nil(t, ticket.PaymentTime)
	})
}

func TestTicket_Cancel(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("held ticket releases its seat", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusHeld}
		release, err := ticket.Cancel(now)
		require.NoError(t, err)
		assert.True(t, release)
		assert.Equal(t, TicketStatusCanceled, ticket.Status)
		require.NotNil(t, ticket.DeletedAt)
	})

	t.Run("paid ticket keeps the seat counted", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusPaid}
		release, err := ticket.Cancel(now)
		require.NoError(t, err)
		assert.False(t, release)
		assert.Equal(t, TicketStatusCanceled, ticket.Status)
	})

	t.Run("replay is reported", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusCanceled}
		release, err := ticket.Cancel(now)
		assert.ErrorIs(t, err, ErrAlreadyCanceled)
		assert.False(t, release)
	})
}

func TestTicket_Apply(t *testing.T) {
	now := time.Now()
	ticket := &Ticket{Status: TicketStatusHeld}

	assert.ErrorIs(t, ticket.Apply(TicketStatusHeld, now), ErrInvalidTransition)
	require.NoError(t, ticket.Apply(TicketStatusPaid, now))
	require.NoError(t, ticket.Apply(TicketStatusCanceled, now))
	assert.Equal(t, TicketStatusCanceled, ticket.Status)
}

func TestBooking_Totals(t *testing.T) {
	b := NewBooking([]Ticket{
		{ConfirmationCode: "ABC", FlightID: 10, FareClassID: 2, FareCents: 15000, Status: TicketStatusHeld},
		{ConfirmationCode: "ABC", FlightID: 10, FareClassID: 2, FareCents: 15000, Status: TicketStatusPaid},
		{ConfirmationCode: "ABC", FlightID: 10, FareClassID: 2, FareCents: 15000, Status: TicketStatusHeld},
	})

	assert.Equal(t, "ABC", b.ConfirmationCode)
	assert.Equal(t, int64(10), b.FlightID)
	assert.Equal(t, int64(30000), b.TotalCents(TicketStatusHeld))
	assert.Equal(t, 1, b.Count(TicketStatusPaid))
}
